package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/config"
	"github.com/trebuchet-org/catapult/internal/domain/models"
)

// Orchestrator executes a plan step by step, persisting progress after every
// status change so that an interrupted run can be resumed.
type Orchestrator struct {
	cfg        *config.RuntimeConfig
	blueprints BlueprintSource
	chain      ChainClient
	store      RecordStore
	progress   ProgressSink
	log        *slog.Logger
}

// NewOrchestrator creates a new deployment orchestrator
func NewOrchestrator(
	cfg *config.RuntimeConfig,
	blueprints BlueprintSource,
	chain ChainClient,
	store RecordStore,
	progress ProgressSink,
	log *slog.Logger,
) *Orchestrator {
	if progress == nil {
		progress = NopProgress{}
	}
	return &Orchestrator{
		cfg:        cfg,
		blueprints: blueprints,
		chain:      chain,
		store:      store,
		progress:   progress,
		log:        log.With("component", "orchestrator"),
	}
}

// PlanEvent is the metadata of a plan_created event
type PlanEvent struct {
	Plan   *models.Plan
	Record *models.Record
}

// StepEvent is the metadata of step level progress events
type StepEvent struct {
	Step    *models.Step
	Record  *models.StepRecord
	Outcome models.StepOutcome
	Err     error
}

// Run executes the plan against the record. A nil record starts a fresh one.
// Steps already verified are reused, deployed steps only have their
// postcondition checked again, and a halted run leaves the record in a state
// the next Run can continue from.
func (o *Orchestrator) Run(ctx context.Context, plan *models.Plan, existing *models.Record) (*models.DeploymentResult, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	chainID, err := o.chain.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	record := existing
	if record == nil {
		record = models.NewRecord(plan.Name, o.networkName(), chainID)
	} else if err := record.Matches(plan.Name, chainID); err != nil {
		return nil, err
	}
	if record.ChainID == 0 {
		record.ChainID = chainID
	}

	// Resolve every blueprint before touching the chain
	blueprints := make(map[string]*models.Blueprint)
	for _, step := range plan.Steps {
		if step.Contract == "" {
			continue
		}
		if _, ok := blueprints[step.Contract]; ok {
			continue
		}
		bp, err := o.blueprints.GetBlueprint(ctx, step.Contract)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", step.Name, err)
		}
		blueprints[step.Contract] = bp
	}

	for _, step := range plan.Steps {
		record.Step(step.Name, step.Contract)
	}

	o.progress.OnProgress(ctx, ProgressEvent{
		Stage:    StagePlanCreated,
		Total:    len(plan.Steps),
		Metadata: &PlanEvent{Plan: plan, Record: record},
	})

	result := &models.DeploymentResult{
		Plan:    plan.Name,
		Network: record.Network,
		ChainID: record.ChainID,
		RunID:   record.RunID,
	}

	for i, step := range plan.Steps {
		// Cancellation is only honoured between steps
		if err := ctx.Err(); err != nil {
			o.progress.OnProgress(ctx, ProgressEvent{
				Stage:   StageRunInterrupted,
				Current: i,
				Total:   len(plan.Steps),
			})
			o.log.Warn("run interrupted", "plan", plan.Name, "next_step", step.Name)
			return result, err
		}

		o.progress.OnProgress(ctx, ProgressEvent{
			Stage:    StageStepStarting,
			Current:  i + 1,
			Total:    len(plan.Steps),
			Message:  step.Name,
			Metadata: &StepEvent{Step: step, Record: record.Steps[step.Name]},
		})

		resolved, err := o.runStep(context.WithoutCancel(ctx), step, blueprints[step.Contract], record)
		if err != nil {
			o.progress.OnProgress(ctx, ProgressEvent{
				Stage:    StageStepFailed,
				Current:  i + 1,
				Total:    len(plan.Steps),
				Message:  step.Name,
				Metadata: &StepEvent{Step: step, Record: record.Steps[step.Name], Err: err},
			})
			return result, err
		}
		result.Steps = append(result.Steps, resolved)

		o.progress.OnProgress(ctx, ProgressEvent{
			Stage:    StageStepCompleted,
			Current:  i + 1,
			Total:    len(plan.Steps),
			Message:  step.Name,
			Metadata: &StepEvent{Step: step, Record: record.Steps[step.Name], Outcome: resolved.Outcome},
		})
	}

	if !record.Completed {
		record.Completed = true
		if err := o.save(ctx, record, ""); err != nil {
			return result, err
		}
	}

	o.progress.OnProgress(ctx, ProgressEvent{
		Stage:    StageRunCompleted,
		Total:    len(plan.Steps),
		Metadata: result,
	})
	o.log.Info("plan completed", "plan", plan.Name, "run_id", record.RunID,
		"deployed", result.Count(models.OutcomeDeployed),
		"reused", result.Count(models.OutcomeReused))

	return result, nil
}

// runStep drives one step through pending -> deployed -> verified
func (o *Orchestrator) runStep(ctx context.Context, step *models.Step, bp *models.Blueprint, record *models.Record) (*models.ResolvedStep, error) {
	sr := record.Steps[step.Name]
	log := o.log.With("step", step.Name)

	var outcome models.StepOutcome
	switch sr.Status {
	case models.StepVerified:
		log.Debug("reusing verified step", "address", sr.Address)
		return resolvedStep(sr, models.OutcomeReused), nil

	case models.StepFailed:
		// Postcondition failures need an operator reset
		if sr.FailureKind != models.FailureDeploymentTx {
			return nil, &domain.StepFailedError{Step: step.Name, Kind: string(sr.FailureKind), Reason: sr.Error}
		}
		fallthrough

	case models.StepPending:
		adopted, err := o.recover(ctx, step, record)
		if err != nil {
			return nil, err
		}
		if adopted {
			outcome = models.OutcomeAdopted
		}

	case models.StepDeployed:
		outcome = models.OutcomeReverified
	}

	if sr.Status == models.StepPending {
		var err error
		if outcome, err = o.deploy(ctx, step, bp, record); err != nil {
			return nil, err
		}
	}

	if err := o.verify(ctx, step, bp, record); err != nil {
		return nil, err
	}

	return resolvedStep(sr, outcome), nil
}

// recover settles a deployment an earlier run sent but never saw confirmed.
// A mined contract is adopted. A transaction the node still holds halts the
// run with the step failed, since sending again could deploy twice. Only a
// reverted or dropped transaction puts the step back to pending.
func (o *Orchestrator) recover(ctx context.Context, step *models.Step, record *models.Record) (bool, error) {
	sr := record.Steps[step.Name]
	log := o.log.With("step", step.Name)

	if sr.TxHash != "" {
		txHash := common.HexToHash(sr.TxHash)
		receipt, err := o.chain.Receipt(ctx, txHash)
		switch {
		case err == nil:
			if err := record.MarkDeployed(step.Name, receipt.Address, sr.TxHash); err != nil {
				return false, err
			}
			log.Info("adopted contract from earlier transaction", "address", receipt.Address.Hex(), "tx", sr.TxHash)
			return true, o.save(ctx, record, step.Name)

		case errors.Is(err, domain.ErrDeploymentTx):
			log.Warn("earlier deployment transaction did not create a contract, retrying", "tx", sr.TxHash, "error", err)

		case errors.Is(err, domain.ErrNotFound):
			state, err := o.chain.TransactionState(ctx, txHash)
			if err != nil {
				return false, o.failDeployment(ctx, record, &domain.DeploymentTxError{
					Step: step.Name, TxHash: sr.TxHash, Err: fmt.Errorf("failed to reconcile transaction: %w", err),
				})
			}
			if state != models.TxUnknown {
				return false, o.failDeployment(ctx, record, &domain.DeploymentTxError{
					Step: step.Name, TxHash: sr.TxHash, Err: fmt.Errorf("transaction still %s, run again once it is mined or dropped", state),
				})
			}
			log.Warn("earlier deployment transaction was dropped, retrying", "tx", sr.TxHash)

		default:
			return false, &domain.DeploymentTxError{Step: step.Name, TxHash: sr.TxHash, Err: fmt.Errorf("failed to reconcile transaction: %w", err)}
		}
	}

	switch sr.Status {
	case models.StepFailed:
		if err := record.Reset(step.Name); err != nil {
			return false, err
		}
	case models.StepPending:
		if sr.TxHash == "" {
			return false, nil
		}
		if err := record.MarkSubmitted(step.Name, ""); err != nil {
			return false, err
		}
	}
	return false, o.save(ctx, record, step.Name)
}

// deploy resolves the constructor arguments and sends the deployment. The
// transaction hash is saved before waiting so a crash mid-wait can be
// reconciled by the next run.
func (o *Orchestrator) deploy(ctx context.Context, step *models.Step, bp *models.Blueprint, record *models.Record) (models.StepOutcome, error) {
	log := o.log.With("step", step.Name)

	if step.Address != "" {
		address := common.HexToAddress(step.Address)
		hasCode, err := o.chain.HasCode(ctx, address)
		if err != nil {
			return "", fmt.Errorf("step %q: checking pre-supplied address: %w", step.Name, err)
		}
		if !hasCode {
			return "", fmt.Errorf("%w: step %q: no contract code at pre-supplied address %s", domain.ErrInvalidPlan, step.Name, address.Hex())
		}
		if err := record.MarkDeployed(step.Name, address, ""); err != nil {
			return "", err
		}
		log.Info("adopted pre-supplied address", "address", address.Hex())
		return models.OutcomeAdopted, o.save(ctx, record, step.Name)
	}

	// Unresolved references are programming errors and leave the step untouched
	args, err := step.ResolveArgs(record.AddressBook())
	if err != nil {
		return "", err
	}

	o.progress.OnProgress(ctx, ProgressEvent{
		Stage:    StageStepDeploying,
		Message:  step.Name,
		Spinner:  true,
		Metadata: &StepEvent{Step: step, Record: record.Steps[step.Name]},
	})
	log.Debug("deploying", "contract", step.Contract, "args", formatArgs(args))

	pending, err := o.chain.SendDeployment(ctx, bp, args)
	if err != nil {
		return "", o.failDeployment(ctx, record, asDeploymentTxError(step.Name, "", err))
	}
	txHash := pending.TxHash.Hex()
	if err := record.MarkSubmitted(step.Name, txHash); err != nil {
		return "", err
	}
	if err := o.save(ctx, record, step.Name); err != nil {
		return "", err
	}
	log.Debug("deployment submitted", "tx", txHash, "address", pending.Address.Hex())

	receipt, err := o.chain.WaitDeployment(ctx, pending.TxHash)
	if err != nil {
		return "", o.failDeployment(ctx, record, asDeploymentTxError(step.Name, txHash, err))
	}

	if err := record.MarkDeployed(step.Name, receipt.Address, receipt.TxHash.Hex()); err != nil {
		return "", err
	}
	log.Info("contract deployed",
		"contract", step.Contract,
		"address", receipt.Address.Hex(),
		"tx", receipt.TxHash.Hex(),
		"block", receipt.BlockNumber,
		"gas_used", receipt.GasUsed)

	o.progress.OnProgress(ctx, ProgressEvent{
		Stage:    StageStepDeployed,
		Message:  step.Name,
		Metadata: &StepEvent{Step: step, Record: record.Steps[step.Name], Outcome: models.OutcomeDeployed},
	})

	return models.OutcomeDeployed, o.save(ctx, record, step.Name)
}

// failDeployment marks the step failed with kind deployment_tx and persists it.
// A step that is already failed keeps its record.
func (o *Orchestrator) failDeployment(ctx context.Context, record *models.Record, txErr *domain.DeploymentTxError) error {
	o.log.Error("deployment failed", "step", txErr.Step, "tx", txErr.TxHash, "error", txErr.Err)
	if record.Steps[txErr.Step].Status == models.StepFailed {
		return txErr
	}
	if err := record.MarkFailed(txErr.Step, models.FailureDeploymentTx, txErr.TxHash, txErr.Err); err != nil {
		return errors.Join(txErr, err)
	}
	if err := o.save(ctx, record, txErr.Step); err != nil {
		return errors.Join(txErr, err)
	}
	return txErr
}

// asDeploymentTxError tags a chain client error with the step and transaction
func asDeploymentTxError(step, txHash string, err error) *domain.DeploymentTxError {
	txErr := &domain.DeploymentTxError{Step: step, TxHash: txHash, Err: err}
	var sent *domain.DeploymentTxError
	if errors.As(err, &sent) {
		if sent.TxHash != "" {
			txErr.TxHash = sent.TxHash
		}
		txErr.Err = sent.Err
	}
	return txErr
}

// verify evaluates the postcondition of a deployed step and marks it verified.
// A failing call leaves the step deployed so the next run checks again.
func (o *Orchestrator) verify(ctx context.Context, step *models.Step, bp *models.Blueprint, record *models.Record) error {
	sr := record.Steps[step.Name]
	log := o.log.With("step", step.Name)

	if pc := step.Postcondition; pc != nil {
		o.progress.OnProgress(ctx, ProgressEvent{
			Stage:    StageStepVerifying,
			Message:  step.Name,
			Spinner:  true,
			Metadata: &StepEvent{Step: step, Record: sr},
		})

		args, err := pc.ResolveArgs(record.AddressBook())
		if err != nil {
			var unresolved *domain.UnresolvedDependencyError
			if errors.As(err, &unresolved) && unresolved.Step == "" {
				unresolved.Step = step.Name
			}
			return fmt.Errorf("step %q: postcondition %s(): %w", step.Name, pc.Method, err)
		}

		values, err := o.chain.Call(ctx, bp, common.HexToAddress(sr.Address), pc.Method, args...)
		if err != nil {
			return fmt.Errorf("step %q: postcondition call %s(): %w", step.Name, pc.Method, err)
		}

		actual := formatArgs(values)
		if !pc.Matches(actual) {
			mismatch := &domain.PostconditionMismatchError{
				Step:     step.Name,
				Method:   pc.Method,
				Expected: pc.Expected,
				Actual:   actual,
			}
			log.Error("postcondition mismatch", "method", pc.Method, "expected", pc.Expected, "actual", actual)
			if err := record.MarkFailed(step.Name, models.FailurePostcondition, "", mismatch); err != nil {
				return errors.Join(mismatch, err)
			}
			if err := o.save(ctx, record, step.Name); err != nil {
				return errors.Join(mismatch, err)
			}
			return mismatch
		}
		log.Info("postcondition holds", "method", pc.Method, "value", actual)
	}

	if err := record.MarkVerified(step.Name); err != nil {
		return err
	}
	return o.save(ctx, record, step.Name)
}

// save persists the record, tagging failures with the step being processed
func (o *Orchestrator) save(ctx context.Context, record *models.Record, step string) error {
	err := o.store.Save(ctx, record)
	if err == nil {
		return nil
	}
	var perr *domain.PersistenceError
	if errors.As(err, &perr) {
		if perr.Step == "" {
			perr.Step = step
		}
		return err
	}
	return &domain.PersistenceError{Op: "save", Key: record.Key(), Step: step, Err: err}
}

func (o *Orchestrator) networkName() string {
	if o.cfg != nil && o.cfg.Network != nil {
		return o.cfg.Network.Name
	}
	return ""
}

func resolvedStep(sr *models.StepRecord, outcome models.StepOutcome) *models.ResolvedStep {
	return &models.ResolvedStep{
		Name:     sr.Name,
		Contract: sr.Contract,
		Address:  common.HexToAddress(sr.Address),
		TxHash:   sr.TxHash,
		Outcome:  outcome,
	}
}

func formatArgs(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = models.FormatValue(v)
	}
	return strings.Join(parts, ",")
}
