package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/config"
	"github.com/trebuchet-org/catapult/internal/domain/models"
)

// ShowStatus reads persisted deployment records
type ShowStatus struct {
	cfg    *config.RuntimeConfig
	loader PlanLoader
	store  RecordStore
}

// NewShowStatus creates a new show status use case
func NewShowStatus(cfg *config.RuntimeConfig, loader PlanLoader, store RecordStore) *ShowStatus {
	return &ShowStatus{
		cfg:    cfg,
		loader: loader,
		store:  store,
	}
}

// ShowStatusParams selects which records to show
type ShowStatusParams struct {
	PlanPath    string // Empty lists every record
	AllNetworks bool   // Ignore the selected network
}

// StatusEntry pairs a record with the plan it belongs to, when known
type StatusEntry struct {
	Record *models.Record
	Plan   *models.Plan // nil when listing without a plan file
}

// Run returns the matching records ordered by plan and network
func (uc *ShowStatus) Run(ctx context.Context, params ShowStatusParams) ([]*StatusEntry, error) {
	if params.PlanPath != "" {
		if uc.cfg.Network == nil {
			return nil, fmt.Errorf("no network selected")
		}
		plan, err := uc.loader.LoadPlan(ctx, params.PlanPath, PlanVars{})
		if err != nil {
			return nil, err
		}
		key := models.RecordKey(plan.Name, uc.cfg.Network.Name)
		record, err := uc.store.Load(ctx, key)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("no record for plan %s on %s: %w", plan.Name, uc.cfg.Network.Name, err)
			}
			return nil, persistenceError("load", key, err)
		}
		return []*StatusEntry{{Record: record, Plan: plan}}, nil
	}

	records, err := uc.store.List(ctx)
	if err != nil {
		return nil, persistenceError("list", "", err)
	}

	var entries []*StatusEntry
	for _, record := range records {
		if !params.AllNetworks && uc.cfg.Network != nil && record.Network != uc.cfg.Network.Name {
			continue
		}
		entries = append(entries, &StatusEntry{Record: record})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Record.Key() < entries[j].Record.Key()
	})
	return entries, nil
}

// OrderedSteps returns the step records of an entry in plan order when the
// plan is known, otherwise sorted by last update
func (e *StatusEntry) OrderedSteps() []*models.StepRecord {
	steps := make([]*models.StepRecord, 0, len(e.Record.Steps))
	if e.Plan != nil {
		for _, step := range e.Plan.Steps {
			if sr, ok := e.Record.Steps[step.Name]; ok {
				steps = append(steps, sr)
			} else {
				steps = append(steps, &models.StepRecord{Name: step.Name, Contract: step.Contract, Status: models.StepPending})
			}
		}
		return steps
	}
	for _, sr := range e.Record.Steps {
		steps = append(steps, sr)
	}
	sort.SliceStable(steps, func(i, j int) bool {
		if steps[i].UpdatedAt.Equal(steps[j].UpdatedAt) {
			return steps[i].Name < steps[j].Name
		}
		return steps[i].UpdatedAt.Before(steps[j].UpdatedAt)
	})
	return steps
}
