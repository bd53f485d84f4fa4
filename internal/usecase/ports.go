package usecase

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/catapult/internal/domain/config"
	"github.com/trebuchet-org/catapult/internal/domain/models"
)

// BlueprintSource looks up compiled contracts by name
type BlueprintSource interface {
	GetBlueprint(ctx context.Context, name string) (*models.Blueprint, error)
}

// ChainClient deploys contracts and reads their state.
// Deployment is split in two so the transaction hash can be persisted before
// waiting: SendDeployment returns once the node accepted the transaction and
// WaitDeployment blocks until it is mined or the confirmation timeout elapses.
// Failures after submission are a *domain.DeploymentTxError carrying the hash.
type ChainClient interface {
	ChainID(ctx context.Context) (uint64, error)
	Sender() common.Address
	SendDeployment(ctx context.Context, blueprint *models.Blueprint, args []any) (*models.PendingDeployment, error)
	WaitDeployment(ctx context.Context, txHash common.Hash) (*models.DeployReceipt, error)
	Call(ctx context.Context, blueprint *models.Blueprint, address common.Address, method string, args ...any) ([]any, error)
	// Receipt returns domain.ErrNotFound for unknown or still pending transactions
	Receipt(ctx context.Context, txHash common.Hash) (*models.DeployReceipt, error)
	// TransactionState tells a pending transaction apart from one the node dropped
	TransactionState(ctx context.Context, txHash common.Hash) (models.TxState, error)
	HasCode(ctx context.Context, address common.Address) (bool, error)
}

// RecordStore persists deployment records.
// Load returns domain.ErrNotFound when no record exists for the key.
type RecordStore interface {
	Load(ctx context.Context, key string) (*models.Record, error)
	Save(ctx context.Context, record *models.Record) error
	Archive(ctx context.Context, key string) error
	List(ctx context.Context) ([]*models.Record, error)
	Close() error
}

// RunLock gives one process exclusive access to a record
type RunLock interface {
	// Acquire fails fast with *domain.ConcurrentRunError when the lock is held
	Acquire(ctx context.Context, key string) (release func() error, err error)
}

// PlanLoader builds a plan from a plan file
type PlanLoader interface {
	LoadPlan(ctx context.Context, path string, vars PlanVars) (*models.Plan, error)
}

// PlanVars are the values a plan file may reference besides step addresses
type PlanVars struct {
	Sender common.Address // Zero when no signer is configured
}

// Confirmer asks the operator before broadcasting
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ManifestWriter writes the address manifest of a run
type ManifestWriter interface {
	WriteManifest(ctx context.Context, path string, result *models.DeploymentResult) error
}

// LocalConfigStore persists per-checkout defaults
type LocalConfigStore interface {
	Exists() bool
	Load(ctx context.Context) (*config.LocalConfig, error)
	Save(ctx context.Context, cfg *config.LocalConfig) error
	GetPath() string
}

// Progress tracking interfaces

// ProgressStage identifies what a progress event reports
type ProgressStage string

const (
	StagePlanCreated    ProgressStage = "plan_created"
	StageStepStarting   ProgressStage = "step_starting"
	StageStepDeploying  ProgressStage = "step_deploying"
	StageStepDeployed   ProgressStage = "step_deployed"
	StageStepVerifying  ProgressStage = "step_verifying"
	StageStepCompleted  ProgressStage = "step_completed"
	StageStepFailed     ProgressStage = "step_failed"
	StageRunCompleted   ProgressStage = "run_completed"
	StageRunInterrupted ProgressStage = "run_interrupted"
)

// ProgressEvent represents a progress update
type ProgressEvent struct {
	Stage    ProgressStage
	Current  int
	Total    int
	Message  string
	Spinner  bool
	Metadata interface{}
}

// ProgressSink receives progress events
type ProgressSink interface {
	OnProgress(ctx context.Context, event ProgressEvent)
	Info(message string)
	Error(message string)
}

// NopProgress is a no-op implementation of ProgressSink
type NopProgress struct{}

func (NopProgress) OnProgress(context.Context, ProgressEvent) {}
func (NopProgress) Info(string)                               {}
func (NopProgress) Error(string)                              {}
