package app

import (
	"log/slog"
	"os"

	"github.com/trebuchet-org/catapult/internal/cli/render"
	"github.com/trebuchet-org/catapult/internal/domain/config"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// App is the main application container that holds all use cases
type App struct {
	// Configuration
	Config *config.RuntimeConfig
	Log    *slog.Logger

	// Use cases
	RunPlan     *usecase.RunPlan
	PreviewPlan *usecase.PreviewPlan
	ShowStatus  *usecase.ShowStatus
	ResetStep   *usecase.ResetStep

	ShowConfig   *usecase.ShowConfig
	SetConfig    *usecase.SetConfig
	RemoveConfig *usecase.RemoveConfig

	// Renderers
	PlanRenderer   render.Renderer[*usecase.PlanPreview]
	StatusRenderer *render.StatusRenderer
	RunRenderer    *render.RunRenderer
}

// NewApp creates a new application instance with all use cases
func NewApp(
	cfg *config.RuntimeConfig,
	log *slog.Logger,
	runPlan *usecase.RunPlan,
	previewPlan *usecase.PreviewPlan,
	showStatus *usecase.ShowStatus,
	resetStep *usecase.ResetStep,
	showConfig *usecase.ShowConfig,
	setConfig *usecase.SetConfig,
	removeConfig *usecase.RemoveConfig,
	planRenderer render.Renderer[*usecase.PlanPreview],
	statusRenderer *render.StatusRenderer,
	runRenderer *render.RunRenderer,
) (*App, error) {
	return &App{
		Config:         cfg,
		Log:            log,
		RunPlan:        runPlan,
		PreviewPlan:    previewPlan,
		ShowStatus:     showStatus,
		ResetStep:      resetStep,
		ShowConfig:     showConfig,
		SetConfig:      setConfig,
		RemoveConfig:   removeConfig,
		PlanRenderer:   planRenderer,
		StatusRenderer: statusRenderer,
		RunRenderer:    runRenderer,
	}, nil
}

// ProvidePlanRenderer renders plan previews to stdout
func ProvidePlanRenderer() render.Renderer[*usecase.PlanPreview] {
	return render.NewPlanRenderer(os.Stdout)
}

// ProvideStatusRenderer renders records to stdout
func ProvideStatusRenderer() *render.StatusRenderer {
	return render.NewStatusRenderer(os.Stdout)
}

// ProvideRunRenderer renders run results to stdout
func ProvideRunRenderer() *render.RunRenderer {
	return render.NewRunRenderer(os.Stdout)
}
