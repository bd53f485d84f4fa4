package cli

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: ExitOK},
		{name: "generic", err: errors.New("boom"), want: ExitError},
		{name: "aborted", err: usecase.ErrAborted, want: ExitError},
		{name: "cancelled", err: fmt.Errorf("run: %w", context.Canceled), want: ExitInterrupted},
		{
			name: "unresolved dependency",
			err:  &domain.UnresolvedDependencyError{Step: "Router", Reference: "Factory"},
			want: ExitInvalidPlan,
		},
		{name: "invalid plan", err: fmt.Errorf("%w: duplicate step", domain.ErrInvalidPlan), want: ExitInvalidPlan},
		{
			name: "deployment transaction",
			err:  &domain.DeploymentTxError{Step: "Factory", Err: errors.New("reverted")},
			want: ExitDeploymentTx,
		},
		{
			name: "postcondition",
			err:  &domain.PostconditionMismatchError{Step: "Factory", Method: "pairCodeHash"},
			want: ExitPostcondition,
		},
		{name: "concurrent run", err: &domain.ConcurrentRunError{Key: "finswap-local"}, want: ExitConcurrentRun},
		{
			name: "store locked during init",
			err:  fmt.Errorf("failed to initialize app: %w", fmt.Errorf("failed to open badger record store: %w", &domain.ConcurrentRunError{Key: "badger store"})),
			want: ExitConcurrentRun,
		},
		{
			name: "persistence",
			err:  &domain.PersistenceError{Op: "save", Key: "finswap-local", Err: errors.New("disk full")},
			want: ExitPersistence,
		},
		{name: "step failed", err: &domain.StepFailedError{Step: "Factory"}, want: ExitStepFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
