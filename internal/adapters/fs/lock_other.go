//go:build !unix

package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/config"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// RunLockAdapter serializes runs with an exclusive lock file. Unlike flock it
// survives a crash, in which case the file has to be removed by hand.
type RunLockAdapter struct {
	dir string
}

// NewRunLockAdapter creates a new RunLockAdapter
func NewRunLockAdapter(cfg *config.RuntimeConfig) *RunLockAdapter {
	return &RunLockAdapter{dir: filepath.Join(cfg.DataDir, "locks")}
}

// Acquire creates the lock file, failing when it already exists
func (l *RunLockAdapter) Acquire(_ context.Context, key string) (func() error, error) {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	path := filepath.Join(l.dir, key+".lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, &domain.ConcurrentRunError{Key: key, LockPath: path}
		}
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}
	f.Close() //nolint:errcheck
	return func() error {
		err := os.Remove(path)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}, nil
}

var _ usecase.RunLock = (*RunLockAdapter)(nil)
