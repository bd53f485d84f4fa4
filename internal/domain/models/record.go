package models

import (
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/trebuchet-org/catapult/internal/domain"
)

// RecordVersion is the serialization version written by this build
const RecordVersion = 1

// StepStatus is the lifecycle state of a single step
type StepStatus string

const (
	StepPending  StepStatus = "pending"
	StepDeployed StepStatus = "deployed"
	StepVerified StepStatus = "verified"
	StepFailed   StepStatus = "failed"
)

// FailureKind tells why a step ended up failed
type FailureKind string

const (
	FailureDeploymentTx  FailureKind = "deployment_tx"
	FailurePostcondition FailureKind = "postcondition"
)

var transitions = map[StepStatus][]StepStatus{
	StepPending:  {StepDeployed, StepFailed},
	StepDeployed: {StepVerified, StepFailed},
	StepVerified: {},
	StepFailed:   {StepPending, StepDeployed},
}

// StepRecord is the persisted progress of one step
type StepRecord struct {
	Name        string      `json:"name"`
	Contract    string      `json:"contract"`
	Status      StepStatus  `json:"status"`
	Address     string      `json:"address,omitempty"`
	TxHash      string      `json:"txHash,omitempty"`
	FailureKind FailureKind `json:"failureKind,omitempty"`
	Error       string      `json:"error,omitempty"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Resolved reports whether the step has an address that later steps may use
func (s *StepRecord) Resolved() bool {
	return s.Address != "" && (s.Status == StepDeployed || s.Status == StepVerified)
}

// Record tracks the progress of a plan on one network
type Record struct {
	Version   int                    `json:"version"`
	RunID     string                 `json:"runId"`
	Plan      string                 `json:"plan"`
	Network   string                 `json:"network"`
	ChainID   uint64                 `json:"chainId"`
	Completed bool                   `json:"completed"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
	Steps     map[string]*StepRecord `json:"steps"`
}

// NewRecord creates an empty record for a plan on a network
func NewRecord(plan, network string, chainID uint64) *Record {
	now := time.Now().UTC()
	return &Record{
		Version:   RecordVersion,
		RunID:     uuid.New().String(),
		Plan:      plan,
		Network:   network,
		ChainID:   chainID,
		CreatedAt: now,
		UpdatedAt: now,
		Steps:     make(map[string]*StepRecord),
	}
}

// RecordKey identifies the record of a plan on a network in a store
func RecordKey(plan, network string) string {
	return fmt.Sprintf("%s-%s", plan, network)
}

// Key returns the store key of the record
func (r *Record) Key() string {
	return RecordKey(r.Plan, r.Network)
}

// Step returns the record of a step, creating a pending entry on first access
func (r *Record) Step(name, contract string) *StepRecord {
	if r.Steps == nil {
		r.Steps = make(map[string]*StepRecord)
	}
	sr, ok := r.Steps[name]
	if !ok {
		sr = &StepRecord{
			Name:      name,
			Contract:  contract,
			Status:    StepPending,
			UpdatedAt: time.Now().UTC(),
		}
		r.Steps[name] = sr
		r.Completed = false
	}
	return sr
}

func (r *Record) transition(name string, to StepStatus) (*StepRecord, error) {
	sr, ok := r.Steps[name]
	if !ok {
		return nil, fmt.Errorf("%w: step %q is not tracked", domain.ErrNotFound, name)
	}
	allowed := false
	for _, next := range transitions[sr.Status] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: step %q %s -> %s", domain.ErrInvalidTransition, name, sr.Status, to)
	}
	now := time.Now().UTC()
	sr.Status = to
	sr.UpdatedAt = now
	r.UpdatedAt = now
	return sr, nil
}

// MarkSubmitted stores the hash of a deployment sent for a pending step so an
// interrupted run can reconcile it. An empty hash forgets the submission.
func (r *Record) MarkSubmitted(name, txHash string) error {
	sr, ok := r.Steps[name]
	if !ok {
		return fmt.Errorf("%w: step %q is not tracked", domain.ErrNotFound, name)
	}
	if sr.Status != StepPending {
		return fmt.Errorf("%w: step %q is %s, not pending", domain.ErrInvalidTransition, name, sr.Status)
	}
	now := time.Now().UTC()
	sr.TxHash = txHash
	sr.UpdatedAt = now
	r.UpdatedAt = now
	return nil
}

// MarkDeployed records the address of a freshly deployed (or adopted) contract
func (r *Record) MarkDeployed(name string, address common.Address, txHash string) error {
	sr, err := r.transition(name, StepDeployed)
	if err != nil {
		return err
	}
	sr.Address = address.Hex()
	sr.TxHash = txHash
	sr.FailureKind = ""
	sr.Error = ""
	return nil
}

// MarkVerified records that the step passed its postcondition
func (r *Record) MarkVerified(name string) error {
	_, err := r.transition(name, StepVerified)
	return err
}

// MarkFailed moves a step to the failed state
func (r *Record) MarkFailed(name string, kind FailureKind, txHash string, cause error) error {
	sr, err := r.transition(name, StepFailed)
	if err != nil {
		return err
	}
	sr.FailureKind = kind
	if txHash != "" {
		sr.TxHash = txHash
	}
	if cause != nil {
		sr.Error = cause.Error()
	}
	r.Completed = false
	return nil
}

// Reset returns a failed step to pending, discarding its address
func (r *Record) Reset(name string) error {
	sr, err := r.transition(name, StepPending)
	if err != nil {
		return err
	}
	sr.Address = ""
	sr.TxHash = ""
	sr.FailureKind = ""
	sr.Error = ""
	r.Completed = false
	return nil
}

// AddressBook returns the addresses of every resolved step
func (r *Record) AddressBook() AddressBook {
	book := make(AddressBook, len(r.Steps))
	for name, sr := range r.Steps {
		if sr.Resolved() {
			book[name] = common.HexToAddress(sr.Address)
		}
	}
	return book
}

// Failed returns the sorted names of failed steps
func (r *Record) Failed() []string {
	var names []string
	for name, sr := range r.Steps {
		if sr.Status == StepFailed {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Matches checks that the record belongs to the given plan and chain
func (r *Record) Matches(plan string, chainID uint64) error {
	if r.Version > RecordVersion {
		return fmt.Errorf("%w: record version %d is newer than supported version %d", domain.ErrRecordMismatch, r.Version, RecordVersion)
	}
	if r.Plan != plan {
		return fmt.Errorf("%w: record is for plan %q, not %q", domain.ErrRecordMismatch, r.Plan, plan)
	}
	if chainID != 0 && r.ChainID != 0 && r.ChainID != chainID {
		return fmt.Errorf("%w: record is for chain %d, connected to chain %d", domain.ErrRecordMismatch, r.ChainID, chainID)
	}
	return nil
}
