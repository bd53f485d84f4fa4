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

// ResetStep returns failed steps to pending so the next run retries them
type ResetStep struct {
	cfg    *config.RuntimeConfig
	loader PlanLoader
	store  RecordStore
	lock   RunLock
	log    *slog.Logger
}

// NewResetStep creates a new reset step use case
func NewResetStep(cfg *config.RuntimeConfig, loader PlanLoader, store RecordStore, lock RunLock, log *slog.Logger) *ResetStep {
	return &ResetStep{
		cfg:    cfg,
		loader: loader,
		store:  store,
		lock:   lock,
		log:    log,
	}
}

// ResetStepParams names the record and steps to reset
type ResetStepParams struct {
	PlanPath string
	Steps    []string // Empty resets every failed step
}

// ResetStepResult lists the steps that were reset
type ResetStepResult struct {
	Record *models.Record
	Reset  []string
}

// Run resets the selected failed steps and saves the record
func (uc *ResetStep) Run(ctx context.Context, params ResetStepParams) (*ResetStepResult, error) {
	if uc.cfg.Network == nil {
		return nil, fmt.Errorf("no network selected")
	}

	plan, err := uc.loader.LoadPlan(ctx, params.PlanPath, PlanVars{})
	if err != nil {
		return nil, err
	}
	key := models.RecordKey(plan.Name, uc.cfg.Network.Name)

	release, err := uc.lock.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(); err != nil {
			uc.log.Warn("failed to release run lock", "key", key, "error", err)
		}
	}()

	record, err := uc.store.Load(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("no record for plan %s on %s: %w", plan.Name, uc.cfg.Network.Name, err)
		}
		return nil, persistenceError("load", key, err)
	}

	targets := params.Steps
	if len(targets) == 0 {
		targets = record.Failed()
		if len(targets) == 0 {
			return &ResetStepResult{Record: record}, nil
		}
	}

	for _, name := range targets {
		sr, ok := record.Steps[name]
		if !ok {
			return nil, fmt.Errorf("step %q: %w in record %s", name, domain.ErrNotFound, key)
		}
		if sr.Status != models.StepFailed {
			return nil, fmt.Errorf("step %q is %s, only failed steps can be reset", name, sr.Status)
		}
	}

	for _, name := range targets {
		if err := record.Reset(name); err != nil {
			return nil, err
		}
		uc.log.Info("step reset", "key", key, "step", name)
	}

	if err := uc.store.Save(ctx, record); err != nil {
		return nil, persistenceError("save", key, err)
	}

	return &ResetStepResult{Record: record, Reset: targets}, nil
}
