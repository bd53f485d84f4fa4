package usecase

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/config"
	"github.com/trebuchet-org/catapult/internal/domain/models"
)

// PreviewPlan validates a plan without touching the chain
type PreviewPlan struct {
	cfg        *config.RuntimeConfig
	loader     PlanLoader
	blueprints BlueprintSource
	chain      ChainClient
	store      RecordStore
}

// NewPreviewPlan creates a new preview plan use case
func NewPreviewPlan(
	cfg *config.RuntimeConfig,
	loader PlanLoader,
	blueprints BlueprintSource,
	chain ChainClient,
	store RecordStore,
) *PreviewPlan {
	return &PreviewPlan{
		cfg:        cfg,
		loader:     loader,
		blueprints: blueprints,
		chain:      chain,
		store:      store,
	}
}

// PlanPreview describes a validated plan and what a run would do with it
type PlanPreview struct {
	Plan    *models.Plan
	Record  *models.Record // nil when the plan never ran on the network
	Sender  string
	Network string
	Steps   []*PreviewStep
}

// PreviewStep is one row of the preview
type PreviewStep struct {
	Step     *models.Step
	Status   models.StepStatus
	Address  string
	Artifact string // Source of the blueprint, empty for adopted addresses
}

// Run loads the plan, resolves its blueprints and reads any existing record
func (uc *PreviewPlan) Run(ctx context.Context, planPath string) (*PlanPreview, error) {
	sender := uc.chain.Sender()
	plan, err := uc.loader.LoadPlan(ctx, planPath, PlanVars{Sender: sender})
	if err != nil {
		return nil, err
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	preview := &PlanPreview{Plan: plan}
	if sender != (common.Address{}) {
		preview.Sender = sender.Hex()
	}

	if uc.cfg.Network != nil {
		preview.Network = uc.cfg.Network.Name
		record, err := uc.store.Load(ctx, models.RecordKey(plan.Name, uc.cfg.Network.Name))
		switch {
		case err == nil:
			preview.Record = record
		case !errors.Is(err, domain.ErrNotFound):
			return nil, persistenceError("load", models.RecordKey(plan.Name, uc.cfg.Network.Name), err)
		}
	}

	for _, step := range plan.Steps {
		row := &PreviewStep{Step: step, Status: models.StepPending, Address: step.Address}
		if preview.Record != nil {
			if sr, ok := preview.Record.Steps[step.Name]; ok {
				row.Status = sr.Status
				if sr.Address != "" {
					row.Address = sr.Address
				}
			}
		}
		if step.Contract != "" {
			bp, err := uc.blueprints.GetBlueprint(ctx, step.Contract)
			if err != nil {
				return nil, err
			}
			row.Artifact = bp.Source
		}
		preview.Steps = append(preview.Steps, row)
	}

	return preview, nil
}
