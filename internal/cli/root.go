package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/catapult/internal/adapters/progress"
	"github.com/trebuchet-org/catapult/internal/app"
	"github.com/trebuchet-org/catapult/internal/cli/render"
	"github.com/trebuchet-org/catapult/internal/config"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// contextKey is the type for context keys
type contextKey string

const (
	// appKey is the context key for the app instance
	appKey contextKey = "app"
)

// Execute runs the root command and releases whatever the app opened
func Execute(ctx context.Context) error {
	var cleanup func()
	rootCmd := NewRootCmd(&cleanup)
	err := rootCmd.ExecuteContext(ctx)
	if cleanup != nil {
		cleanup()
	}
	return err
}

// NewRootCmd creates the root command. The app cleanup function is stored in
// cleanup once the app has been built.
func NewRootCmd(cleanup *func()) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "catapult",
		Short: "Resumable multi-contract deployment orchestrator",
		Long: `Catapult deploys a plan of dependent contracts step by step, records every
resolved address and verifies postconditions, so an interrupted or failed run
can be resumed without redeploying what already exists.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip for help/version commands
			if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			projectRoot, err := config.FindProjectRoot()
			if err != nil {
				return err
			}

			v := config.SetupViper(projectRoot, cmd)

			// Only runs print progress as they go
			var sink usecase.ProgressSink = progress.NewNopSink()
			if cmd.Name() == "run" {
				sink = progress.NewRunProgress(render.NewRunRenderer(cmd.OutOrStdout()))
			}

			appInstance, appCleanup, err := app.InitApp(v, sink)
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}
			if cleanup != nil {
				*cleanup = appCleanup
			}

			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug output")
	rootCmd.PersistentFlags().Bool("non-interactive", false, "Disable interactive prompts")
	rootCmd.PersistentFlags().StringP("network", "n", "", "Network to use, as named in catapult.toml (default \"local\")")
	rootCmd.PersistentFlags().String("store", "", "Record store backend: file, sqlite or badger")
	rootCmd.PersistentFlags().Duration("timeout", 0, "How long to wait for each transaction to be mined")

	// Add command groups
	rootCmd.AddGroup(&cobra.Group{
		ID:    "main",
		Title: "Main Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "management",
		Title: "Management Commands",
	})

	runCmd := NewRunCmd()
	runCmd.GroupID = "main"
	rootCmd.AddCommand(runCmd)

	planCmd := NewPlanCmd()
	planCmd.GroupID = "main"
	rootCmd.AddCommand(planCmd)

	statusCmd := NewStatusCmd()
	statusCmd.GroupID = "management"
	rootCmd.AddCommand(statusCmd)

	resetCmd := NewResetCmd()
	resetCmd.GroupID = "management"
	rootCmd.AddCommand(resetCmd)

	configCmd := NewConfigCmd()
	configCmd.GroupID = "management"
	rootCmd.AddCommand(configCmd)

	// Version command
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// getApp retrieves the app instance from the command context
func getApp(cmd *cobra.Command) (*app.App, error) {
	appInstance := cmd.Context().Value(appKey)
	if appInstance == nil {
		return nil, fmt.Errorf("app not initialized")
	}

	app, ok := appInstance.(*app.App)
	if !ok {
		return nil, fmt.Errorf("invalid app instance")
	}

	return app, nil
}
