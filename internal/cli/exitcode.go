package cli

import (
	"context"
	"errors"

	"github.com/trebuchet-org/catapult/internal/domain"
)

// Process exit codes
const (
	ExitOK            = 0
	ExitError         = 1
	ExitInvalidPlan   = 2
	ExitDeploymentTx  = 3
	ExitPostcondition = 4
	ExitConcurrentRun = 5
	ExitPersistence   = 6
	ExitStepFailed    = 7
	ExitInterrupted   = 130
)

// ExitCode maps a command error to the process exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, domain.ErrConcurrentRun):
		return ExitConcurrentRun
	case errors.Is(err, domain.ErrUnresolvedDependency), errors.Is(err, domain.ErrInvalidPlan):
		return ExitInvalidPlan
	case errors.Is(err, domain.ErrDeploymentTx):
		return ExitDeploymentTx
	case errors.Is(err, domain.ErrPostconditionMismatch):
		return ExitPostcondition
	case errors.Is(err, domain.ErrStepFailed):
		return ExitStepFailed
	case errors.Is(err, domain.ErrPersistence):
		return ExitPersistence
	default:
		return ExitError
	}
}
