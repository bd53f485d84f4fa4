package progress

import (
	"context"

	"github.com/trebuchet-org/catapult/internal/cli/render"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// RunProgress prints orchestrator events as they happen
type RunProgress struct {
	renderer *render.RunRenderer
	spinner  *SpinnerProgressReporter
}

// NewRunProgress creates a progress sink printing through renderer
func NewRunProgress(renderer *render.RunRenderer) *RunProgress {
	return &RunProgress{
		renderer: renderer,
		spinner:  NewSpinnerProgressReporter(),
	}
}

func newRunProgressWithSpinner(renderer *render.RunRenderer, spinner *SpinnerProgressReporter) *RunProgress {
	return &RunProgress{renderer: renderer, spinner: spinner}
}

// OnProgress renders plan and step events
func (p *RunProgress) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	p.spinner.OnProgress(ctx, event)

	switch event.Stage {
	case usecase.StagePlanCreated:
		if ev, ok := event.Metadata.(*usecase.PlanEvent); ok {
			p.renderer.PrintBanner(ev)
		} else {
			p.spinner.Info("Warning: wrong data-type in plan event")
		}
	case usecase.StageStepCompleted, usecase.StageStepFailed:
		p.renderer.PrintStep(event)
	case usecase.StageRunInterrupted:
		p.renderer.PrintInterrupted(event)
	}
}

// Info prints an info message
func (p *RunProgress) Info(message string) {
	p.spinner.Info(message)
}

// Error prints an error message
func (p *RunProgress) Error(message string) {
	p.spinner.Error(message)
}

// Ensure RunProgress implements ProgressSink
var _ usecase.ProgressSink = (*RunProgress)(nil)
