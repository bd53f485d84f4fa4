// Package kv stores deployment records in an embedded BadgerDB.
package kv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/models"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

const (
	recordPrefix  = "record/"
	archivePrefix = "archive/"

	dirLockMessage = "Cannot acquire directory lock"
)

// Store implements RecordStore on top of Badger
type Store struct {
	db  *badgerdb.DB
	now func() time.Time
}

// Open opens (or creates) the database in dir. An empty dir keeps
// everything in memory.
func Open(dir string, log *slog.Logger) (*Store, error) {
	opts := badgerdb.DefaultOptions(dir).
		WithLogger(newBadgerLogger(log)).
		WithSyncWrites(true)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		// Badger locks the whole directory, so any second process is refused
		// regardless of which record it wants.
		if strings.Contains(err.Error(), dirLockMessage) {
			return nil, &domain.ConcurrentRunError{Key: "badger store", LockPath: dir}
		}
		return nil, fmt.Errorf("failed to open badger store at %s: %w", dir, err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func recordKey(key string) []byte {
	return []byte(recordPrefix + key)
}

// Load reads a record
func (s *Store) Load(_ context.Context, key string) (*models.Record, error) {
	var data []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(recordKey(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil, fmt.Errorf("record %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read record %s: %w", key, err)
	}

	record, err := models.UnmarshalRecord(data)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", key, err)
	}
	return record, nil
}

// Save writes a record
func (s *Store) Save(_ context.Context, record *models.Record) error {
	data, err := models.MarshalRecord(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	err = s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(recordKey(record.Key()), data)
	})
	if err != nil {
		return fmt.Errorf("failed to write record %s: %w", record.Key(), err)
	}
	return nil
}

// Archive moves a record under archive/<key>/<timestamp>
func (s *Store) Archive(_ context.Context, key string) error {
	archived := []byte(fmt.Sprintf("%s%s/%s", archivePrefix, key, s.now().UTC().Format("20060102T150405.000000000")))
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(recordKey(key))
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := txn.Set(archived, data); err != nil {
			return err
		}
		return txn.Delete(recordKey(key))
	})
	if err != nil {
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return fmt.Errorf("record %s: %w", key, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to archive record %s: %w", key, err)
	}
	return nil
}

// Archived returns the archived copies of a record, oldest first
func (s *Store) Archived(_ context.Context, key string) ([]*models.Record, error) {
	return s.scan([]byte(archivePrefix + key + "/"))
}

// List reads every active record
func (s *Store) List(_ context.Context) ([]*models.Record, error) {
	return s.scan([]byte(recordPrefix))
}

func (s *Store) scan(prefix []byte) ([]*models.Record, error) {
	var records []*models.Record
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			record, err := models.UnmarshalRecord(data)
			if err != nil {
				return fmt.Errorf("%s: %w", strings.TrimPrefix(string(item.Key()), recordPrefix), err)
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan records: %w", err)
	}
	return records, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// badgerLogger forwards badger's printf logging to slog
type badgerLogger struct {
	log *slog.Logger
}

func newBadgerLogger(log *slog.Logger) *badgerLogger {
	if log == nil {
		log = slog.Default()
	}
	return &badgerLogger{log: log.With("component", "badger")}
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

var _ usecase.RecordStore = (*Store)(nil)
