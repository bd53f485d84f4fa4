//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/spf13/viper"
	"github.com/trebuchet-org/catapult/internal/adapters"
	"github.com/trebuchet-org/catapult/internal/config"
	"github.com/trebuchet-org/catapult/internal/logging"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// InitApp creates a fully wired App instance
func InitApp(v *viper.Viper, sink usecase.ProgressSink) (*App, func(), error) {
	wire.Build(
		// Configuration
		config.Provider,
		logging.LoggingSet,

		// Adapters
		adapters.AllAdapters,

		// Use cases
		usecase.NewOrchestrator,
		usecase.NewRunPlan,
		usecase.NewPreviewPlan,
		usecase.NewShowStatus,
		usecase.NewResetStep,
		usecase.NewShowConfig,
		usecase.NewSetConfig,
		usecase.NewRemoveConfig,

		// Renderers
		ProvidePlanRenderer,
		ProvideStatusRenderer,
		ProvideRunRenderer,

		// App
		NewApp,
	)
	return nil, nil, nil
}
