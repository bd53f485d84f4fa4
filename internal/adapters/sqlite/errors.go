package sqlite

import (
	"errors"
	"fmt"
)

var (
	ErrConnectionFailed = errors.New("database connection failed")
	ErrMigrationFailed  = errors.New("database migration failed")
	ErrTxFailed         = errors.New("transaction failed")
)

// StoreError describes a failed store operation on one record
type StoreError struct {
	Op      string // e.g. "Save"
	Key     string
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Key, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(op, key, message string, err error) *StoreError {
	return &StoreError{
		Op:      op,
		Key:     key,
		Message: message,
		Err:     err,
	}
}
