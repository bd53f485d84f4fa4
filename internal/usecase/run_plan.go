package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/config"
	"github.com/trebuchet-org/catapult/internal/domain/models"
)

// ErrAborted is returned when the operator declines to broadcast
var ErrAborted = errors.New("aborted by user")

// RunPlan loads a plan, takes the record lock and hands over to the orchestrator
type RunPlan struct {
	cfg          *config.RuntimeConfig
	loader       PlanLoader
	chain        ChainClient
	store        RecordStore
	lock         RunLock
	orchestrator *Orchestrator
	confirmer    Confirmer
	manifest     ManifestWriter
	log          *slog.Logger
}

// NewRunPlan creates a new run plan use case
func NewRunPlan(
	cfg *config.RuntimeConfig,
	loader PlanLoader,
	chain ChainClient,
	store RecordStore,
	lock RunLock,
	orchestrator *Orchestrator,
	confirmer Confirmer,
	manifest ManifestWriter,
	log *slog.Logger,
) *RunPlan {
	return &RunPlan{
		cfg:          cfg,
		loader:       loader,
		chain:        chain,
		store:        store,
		lock:         lock,
		orchestrator: orchestrator,
		confirmer:    confirmer,
		manifest:     manifest,
		log:          log,
	}
}

// RunPlanParams contains parameters for running a plan
type RunPlanParams struct {
	PlanPath string
	Resume   bool   // Require an existing record
	Fresh    bool   // Archive any existing record and start over
	OutPath  string // Optional manifest output
}

// RunPlanResult contains the outcome of a run. Record is set whenever the
// run got far enough to load or create one, including failed runs.
type RunPlanResult struct {
	Plan         *models.Plan
	Record       *models.Record
	Result       *models.DeploymentResult
	Resumed      bool
	ManifestPath string
}

// Run executes the plan on the configured network
func (uc *RunPlan) Run(ctx context.Context, params RunPlanParams) (*RunPlanResult, error) {
	if params.Resume && params.Fresh {
		return nil, fmt.Errorf("--resume and --fresh are mutually exclusive")
	}
	if uc.cfg.Network == nil {
		return nil, fmt.Errorf("no network selected")
	}
	network := uc.cfg.Network.Name

	plan, err := uc.loader.LoadPlan(ctx, params.PlanPath, PlanVars{Sender: uc.chain.Sender()})
	if err != nil {
		return nil, err
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	out := &RunPlanResult{Plan: plan}
	key := models.RecordKey(plan.Name, network)

	release, err := uc.lock.Acquire(ctx, key)
	if err != nil {
		return out, err
	}
	defer func() {
		if err := release(); err != nil {
			uc.log.Warn("failed to release run lock", "key", key, "error", err)
		}
	}()

	existing, err := uc.store.Load(ctx, key)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		existing = nil
	case err != nil:
		return out, persistenceError("load", key, err)
	}

	if existing != nil && params.Fresh {
		if err := uc.store.Archive(ctx, key); err != nil {
			return out, persistenceError("archive", key, err)
		}
		uc.log.Info("archived previous record", "key", key, "run_id", existing.RunID)
		existing = nil
	}
	if existing == nil && params.Resume {
		return out, fmt.Errorf("nothing to resume for plan %s on %s: %w", plan.Name, network, domain.ErrNotFound)
	}
	out.Resumed = existing != nil

	if existing == nil {
		chainID, err := uc.chain.ChainID(ctx)
		if err != nil {
			return out, fmt.Errorf("failed to get chain ID: %w", err)
		}
		existing = models.NewRecord(plan.Name, network, chainID)
	}
	out.Record = existing

	if err := uc.confirm(ctx, plan, existing); err != nil {
		return out, err
	}

	result, err := uc.orchestrator.Run(ctx, plan, existing)
	out.Result = result
	if err != nil {
		return out, err
	}

	if params.OutPath != "" {
		if err := uc.manifest.WriteManifest(ctx, params.OutPath, result); err != nil {
			return out, fmt.Errorf("failed to write manifest: %w", err)
		}
		out.ManifestPath = params.OutPath
	}

	return out, nil
}

// confirm asks before broadcasting to a non-local network
func (uc *RunPlan) confirm(ctx context.Context, plan *models.Plan, record *models.Record) error {
	if uc.cfg.Network.Local || uc.cfg.AssumeYes || uc.cfg.NonInteractive || uc.confirmer == nil {
		return nil
	}

	pending := 0
	for _, step := range plan.Steps {
		if sr, ok := record.Steps[step.Name]; !ok || sr.Status != models.StepVerified {
			pending++
		}
	}
	if pending == 0 {
		return nil
	}

	ok, err := uc.confirmer.Confirm(ctx, fmt.Sprintf("Run %d step(s) of %s on %s", pending, plan.Name, uc.cfg.Network.Name))
	if err != nil {
		return err
	}
	if !ok {
		return ErrAborted
	}
	return nil
}

func persistenceError(op, key string, err error) error {
	var perr *domain.PersistenceError
	if errors.As(err, &perr) {
		return err
	}
	return &domain.PersistenceError{Op: op, Key: key, Err: err}
}
