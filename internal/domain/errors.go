package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for domain operations
var (
	// ErrNotFound is returned when a requested resource doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidPlan is returned when a plan fails static validation
	ErrInvalidPlan = errors.New("invalid plan")

	// ErrUnresolvedDependency is returned when a step references an address that is not resolved yet
	ErrUnresolvedDependency = errors.New("unresolved dependency")

	// ErrDeploymentTx is returned when a deployment transaction could not be submitted or confirmed
	ErrDeploymentTx = errors.New("deployment transaction failed")

	// ErrPostconditionMismatch is returned when a deployed contract fails its postcondition
	ErrPostconditionMismatch = errors.New("postcondition mismatch")

	// ErrConcurrentRun is returned when another run holds the record lock
	ErrConcurrentRun = errors.New("concurrent run detected")

	// ErrPersistence is returned when the deployment record cannot be read or written
	ErrPersistence = errors.New("persistence failure")

	// ErrStepFailed is returned when a step is in the failed state and needs a reset
	ErrStepFailed = errors.New("step previously failed")

	// ErrBlueprintNotFound is returned when no artifact matches a contract name
	ErrBlueprintNotFound = errors.New("blueprint not found")

	// ErrRecordMismatch is returned when a persisted record belongs to another plan or chain
	ErrRecordMismatch = errors.New("record does not match plan")

	// ErrInvalidTransition is returned when a step status change is not allowed
	ErrInvalidTransition = errors.New("invalid status transition")
)

// UnresolvedDependencyError reports a reference to a step that has no address yet.
type UnresolvedDependencyError struct {
	Step      string
	Reference string
	Reason    string
}

func (e *UnresolvedDependencyError) Error() string {
	msg := fmt.Sprintf("step %q references %q", e.Step, e.Reference)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *UnresolvedDependencyError) Is(target error) bool {
	return target == ErrUnresolvedDependency
}

// DeploymentTxError wraps a failed submission or confirmation of a deployment transaction.
type DeploymentTxError struct {
	Step   string
	TxHash string
	Err    error
}

func (e *DeploymentTxError) Error() string {
	if e.TxHash != "" {
		return fmt.Sprintf("deploy %s (tx %s): %v", e.Step, e.TxHash, e.Err)
	}
	return fmt.Sprintf("deploy %s: %v", e.Step, e.Err)
}

func (e *DeploymentTxError) Unwrap() error {
	return e.Err
}

func (e *DeploymentTxError) Is(target error) bool {
	return target == ErrDeploymentTx
}

// PostconditionMismatchError reports a deployed contract whose state differs from the expectation.
type PostconditionMismatchError struct {
	Step     string
	Method   string
	Expected string
	Actual   string
}

func (e *PostconditionMismatchError) Error() string {
	return fmt.Sprintf("step %q: %s() returned %s, expected %s", e.Step, e.Method, e.Actual, e.Expected)
}

func (e *PostconditionMismatchError) Is(target error) bool {
	return target == ErrPostconditionMismatch
}

// ConcurrentRunError reports that another process holds the lock on a record.
type ConcurrentRunError struct {
	Key      string
	LockPath string
}

func (e *ConcurrentRunError) Error() string {
	return fmt.Sprintf("another run holds the lock for %s (%s)", e.Key, e.LockPath)
}

func (e *ConcurrentRunError) Is(target error) bool {
	return target == ErrConcurrentRun
}

// PersistenceError wraps a failure to load, save or archive a record.
type PersistenceError struct {
	Op   string
	Key  string
	Step string
	Err  error
}

func (e *PersistenceError) Error() string {
	parts := []string{e.Op}
	if e.Key != "" {
		parts = append(parts, e.Key)
	}
	if e.Step != "" {
		parts = append(parts, "step "+e.Step)
	}
	return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// StepFailedError is returned when a run reaches a step left in the failed state.
type StepFailedError struct {
	Step   string
	Kind   string
	Reason string
}

func (e *StepFailedError) Error() string {
	return fmt.Sprintf("step %q failed in a previous run (%s: %s); reset it with `catapult reset <plan> --step %s` to retry",
		e.Step, e.Kind, e.Reason, e.Step)
}

func (e *StepFailedError) Is(target error) bool {
	return target == ErrStepFailed
}

// NoBlueprintMatchErr is returned when no artifact matches a contract name.
type NoBlueprintMatchErr struct {
	Name        string
	Suggestions []string
}

func (e NoBlueprintMatchErr) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("no artifact found for contract %s", e.Name)
	}
	return fmt.Sprintf("no artifact found for contract %s (did you mean %s?)", e.Name, strings.Join(e.Suggestions, ", "))
}

func (e NoBlueprintMatchErr) Is(target error) bool {
	return target == ErrBlueprintNotFound
}

// AmbiguousBlueprintErr is returned when several artifacts share a contract name.
type AmbiguousBlueprintErr struct {
	Name    string
	Matches []string
}

func (e AmbiguousBlueprintErr) Error() string {
	var suggestions []string
	for _, path := range e.Matches {
		suggestions = append(suggestions, "  - "+path)
	}
	return fmt.Sprintf("multiple artifacts found for contract %s - use the artifact path to disambiguate:\n%s",
		e.Name, strings.Join(suggestions, "\n"))
}
