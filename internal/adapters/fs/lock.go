//go:build unix

package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/config"
	"github.com/trebuchet-org/catapult/internal/usecase"
	"golang.org/x/sys/unix"
)

// RunLockAdapter serializes runs on a record with an advisory flock.
// The kernel drops the lock when the process dies, so a crashed run never
// leaves a stale lock behind.
type RunLockAdapter struct {
	dir string
}

// NewRunLockAdapter creates a new RunLockAdapter
func NewRunLockAdapter(cfg *config.RuntimeConfig) *RunLockAdapter {
	return &RunLockAdapter{dir: filepath.Join(cfg.DataDir, "locks")}
}

// Acquire takes the lock for key without blocking
func (l *RunLockAdapter) Acquire(_ context.Context, key string) (func() error, error) {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	path := filepath.Join(l.dir, key+".lock")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close() //nolint:errcheck
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, &domain.ConcurrentRunError{Key: key, LockPath: path}
		}
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}

	// Informational only; the flock is what excludes other runs
	_ = f.Truncate(0)
	_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)

	released := false
	return func() error {
		if released {
			return nil
		}
		released = true
		unlockErr := unix.Flock(int(f.Fd()), unix.LOCK_UN)
		return errors.Join(unlockErr, f.Close())
	}, nil
}

var _ usecase.RunLock = (*RunLockAdapter)(nil)
