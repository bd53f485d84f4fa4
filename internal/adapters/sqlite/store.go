package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/models"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// executor is satisfied by both *sqlx.DB and *sqlx.Tx
type executor interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store keeps deployment records in a SQLite database
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open opens the database at dsn and brings its schema up to date
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, NewStoreError("Open", "", err.Error(), ErrConnectionFailed)
	}
	// One writer keeps SQLite from returning SQLITE_BUSY inside a run
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("Open", "", err.Error(), ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("Open", "", err.Error(), ErrMigrationFailed)
	}

	return &Store{db: db, now: time.Now}, nil
}

func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) withTx(ctx context.Context, op, key string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewStoreError(op, key, "failed to begin transaction", ErrTxFailed)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return NewStoreError(op, key, fmt.Sprintf("rollback failed after error: %v", err), ErrTxFailed)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return NewStoreError(op, key, "failed to commit transaction", ErrTxFailed)
	}
	return nil
}

type recordRow struct {
	Key       string `db:"key"`
	Version   int    `db:"version"`
	RunID     string `db:"run_id"`
	Plan      string `db:"plan"`
	Network   string `db:"network"`
	ChainID   uint64 `db:"chain_id"`
	Completed bool   `db:"completed"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

type stepRow struct {
	RecordKey   string `db:"record_key"`
	Name        string `db:"name"`
	Contract    string `db:"contract"`
	Status      string `db:"status"`
	Address     string `db:"address"`
	TxHash      string `db:"tx_hash"`
	FailureKind string `db:"failure_kind"`
	Error       string `db:"error"`
	UpdatedAt   string `db:"updated_at"`
}

// Load reads a record and its steps
func (s *Store) Load(ctx context.Context, key string) (*models.Record, error) {
	return loadRecord(ctx, s.db, key)
}

func loadRecord(ctx context.Context, db executor, key string) (*models.Record, error) {
	var row recordRow
	if err := db.GetContext(ctx, &row, `SELECT * FROM records WHERE key = ?`, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("Load", key, "not found", domain.ErrNotFound)
		}
		return nil, NewStoreError("Load", key, "failed to query record", err)
	}
	if row.Version > models.RecordVersion {
		return nil, NewStoreError("Load", key, fmt.Sprintf("unsupported record version %d", row.Version), domain.ErrRecordMismatch)
	}

	var steps []stepRow
	if err := db.SelectContext(ctx, &steps, `SELECT * FROM steps WHERE record_key = ? ORDER BY name`, key); err != nil {
		return nil, NewStoreError("Load", key, "failed to query steps", err)
	}

	return rowToRecord(row, steps)
}

// Save replaces a record and its steps in one transaction
func (s *Store) Save(ctx context.Context, record *models.Record) error {
	row, steps := recordToRows(record)
	return s.withTx(ctx, "Save", row.Key, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO records (key, version, run_id, plan, network, chain_id, completed, created_at, updated_at)
			VALUES (:key, :version, :run_id, :plan, :network, :chain_id, :completed, :created_at, :updated_at)
			ON CONFLICT(key) DO UPDATE SET
				version = excluded.version,
				run_id = excluded.run_id,
				chain_id = excluded.chain_id,
				completed = excluded.completed,
				created_at = excluded.created_at,
				updated_at = excluded.updated_at`, row)
		if err != nil {
			return NewStoreError("Save", row.Key, "failed to write record", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM steps WHERE record_key = ?`, row.Key); err != nil {
			return NewStoreError("Save", row.Key, "failed to clear steps", err)
		}
		for _, step := range steps {
			_, err := tx.NamedExecContext(ctx, `
				INSERT INTO steps (record_key, name, contract, status, address, tx_hash, failure_kind, error, updated_at)
				VALUES (:record_key, :name, :contract, :status, :address, :tx_hash, :failure_kind, :error, :updated_at)`, step)
			if err != nil {
				return NewStoreError("Save", row.Key, fmt.Sprintf("failed to write step %s", step.Name), err)
			}
		}
		return nil
	})
}

// Archive copies the record into archived_records and removes it
func (s *Store) Archive(ctx context.Context, key string) error {
	return s.withTx(ctx, "Archive", key, func(tx *sqlx.Tx) error {
		record, err := loadRecord(ctx, tx, key)
		if err != nil {
			return err
		}
		data, err := models.MarshalRecord(record)
		if err != nil {
			return NewStoreError("Archive", key, "failed to marshal record", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO archived_records (key, run_id, data, archived_at) VALUES (?, ?, ?, ?)`,
			key, record.RunID, string(data), formatTime(s.now()))
		if err != nil {
			return NewStoreError("Archive", key, "failed to write archive", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM steps WHERE record_key = ?`, key); err != nil {
			return NewStoreError("Archive", key, "failed to delete steps", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE key = ?`, key); err != nil {
			return NewStoreError("Archive", key, "failed to delete record", err)
		}
		return nil
	})
}

// Archived returns the archived copies of a record, oldest first
func (s *Store) Archived(ctx context.Context, key string) ([]*models.Record, error) {
	var rows []string
	if err := s.db.SelectContext(ctx, &rows, `SELECT data FROM archived_records WHERE key = ? ORDER BY id`, key); err != nil {
		return nil, NewStoreError("Archived", key, "failed to query archive", err)
	}
	records := make([]*models.Record, 0, len(rows))
	for _, data := range rows {
		record, err := models.UnmarshalRecord([]byte(data))
		if err != nil {
			return nil, NewStoreError("Archived", key, "failed to parse archived record", err)
		}
		records = append(records, record)
	}
	return records, nil
}

// List reads every active record
func (s *Store) List(ctx context.Context) ([]*models.Record, error) {
	var keys []string
	if err := s.db.SelectContext(ctx, &keys, `SELECT key FROM records ORDER BY key`); err != nil {
		return nil, NewStoreError("List", "", "failed to query records", err)
	}
	records := make([]*models.Record, 0, len(keys))
	for _, key := range keys {
		record, err := loadRecord(ctx, s.db, key)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func recordToRows(r *models.Record) (recordRow, []stepRow) {
	version := r.Version
	if version == 0 {
		version = models.RecordVersion
	}
	row := recordRow{
		Key:       r.Key(),
		Version:   version,
		RunID:     r.RunID,
		Plan:      r.Plan,
		Network:   r.Network,
		ChainID:   r.ChainID,
		Completed: r.Completed,
		CreatedAt: formatTime(r.CreatedAt),
		UpdatedAt: formatTime(r.UpdatedAt),
	}
	steps := make([]stepRow, 0, len(r.Steps))
	for name, sr := range r.Steps {
		steps = append(steps, stepRow{
			RecordKey:   row.Key,
			Name:        name,
			Contract:    sr.Contract,
			Status:      string(sr.Status),
			Address:     sr.Address,
			TxHash:      sr.TxHash,
			FailureKind: string(sr.FailureKind),
			Error:       sr.Error,
			UpdatedAt:   formatTime(sr.UpdatedAt),
		})
	}
	return row, steps
}

func rowToRecord(row recordRow, steps []stepRow) (*models.Record, error) {
	createdAt, err := parseTime(row.CreatedAt)
	if err != nil {
		return nil, NewStoreError("Load", row.Key, "invalid created_at", err)
	}
	updatedAt, err := parseTime(row.UpdatedAt)
	if err != nil {
		return nil, NewStoreError("Load", row.Key, "invalid updated_at", err)
	}

	record := &models.Record{
		Version:   row.Version,
		RunID:     row.RunID,
		Plan:      row.Plan,
		Network:   row.Network,
		ChainID:   row.ChainID,
		Completed: row.Completed,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Steps:     make(map[string]*models.StepRecord, len(steps)),
	}
	for _, step := range steps {
		stepUpdated, err := parseTime(step.UpdatedAt)
		if err != nil {
			return nil, NewStoreError("Load", row.Key, fmt.Sprintf("invalid updated_at of step %s", step.Name), err)
		}
		record.Steps[step.Name] = &models.StepRecord{
			Name:        step.Name,
			Contract:    step.Contract,
			Status:      models.StepStatus(step.Status),
			Address:     step.Address,
			TxHash:      step.TxHash,
			FailureKind: models.FailureKind(step.FailureKind),
			Error:       step.Error,
			UpdatedAt:   stepUpdated,
		}
	}
	return record, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

var _ usecase.RecordStore = (*Store)(nil)
