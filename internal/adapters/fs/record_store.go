package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/config"
	"github.com/trebuchet-org/catapult/internal/domain/models"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

const (
	recordsDirName = "records"
	archiveDirName = "archive"
)

// RecordStoreAdapter keeps one JSON file per record under the data dir
type RecordStoreAdapter struct {
	dir string
	now func() time.Time
}

// NewRecordStoreAdapter creates a new RecordStoreAdapter
func NewRecordStoreAdapter(cfg *config.RuntimeConfig) *RecordStoreAdapter {
	return &RecordStoreAdapter{
		dir: cfg.StorePath(recordsDirName),
		now: time.Now,
	}
}

func (s *RecordStoreAdapter) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Load reads a record from disk
func (s *RecordStoreAdapter) Load(_ context.Context, key string) (*models.Record, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("record %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read record file: %w", err)
	}

	record, err := models.UnmarshalRecord(data)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", key, err)
	}
	return record, nil
}

// Save writes the record next to its final path and renames it into place,
// so a crash never leaves a truncated record behind
func (s *RecordStoreAdapter) Save(_ context.Context, record *models.Record) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create records directory: %w", err)
	}

	data, err := models.MarshalRecord(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+record.Key()+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("failed to write record file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("failed to sync record file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close record file: %w", err)
	}
	if err := os.Rename(tmpName, s.path(record.Key())); err != nil {
		return fmt.Errorf("failed to replace record file: %w", err)
	}
	return nil
}

// Archive moves a record aside so the next run starts from scratch
func (s *RecordStoreAdapter) Archive(_ context.Context, key string) error {
	archiveDir := filepath.Join(s.dir, archiveDirName)
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	target := filepath.Join(archiveDir, fmt.Sprintf("%s-%s.json", key, s.now().UTC().Format("20060102T150405.000")))
	if err := os.Rename(s.path(key), target); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("record %s: %w", key, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to archive record: %w", err)
	}
	return nil
}

// List reads every active record
func (s *RecordStoreAdapter) List(ctx context.Context) ([]*models.Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read records directory: %w", err)
	}

	var records []*models.Record
	var errs []error
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		record, err := s.Load(ctx, strings.TrimSuffix(name, ".json"))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Key() < records[j].Key()
	})
	return records, errors.Join(errs...)
}

// Close is a no-op for files
func (s *RecordStoreAdapter) Close() error {
	return nil
}

var _ usecase.RecordStore = (*RecordStoreAdapter)(nil)
