package cli

import (
	"github.com/spf13/cobra"
)

// NewPlanCmd creates the plan command
func NewPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <plan.yaml>",
		Short: "Show what a run would do without sending transactions",
		Long: `Load a plan, resolve its blueprints and compare it with the stored record.

Each step is listed with its contract, artifact, constructor arguments and the
status it currently has on the selected network. Nothing is deployed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			preview, err := app.PreviewPlan.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return app.PlanRenderer.Render(preview)
		},
	}
}
