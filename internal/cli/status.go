package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// NewStatusCmd creates the status command
func NewStatusCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "status [plan.yaml]",
		Short: "Show recorded deployment state",
		Long: `Show the persisted state of deployment runs.

With a plan file, the record of that plan on the selected network is shown
step by step in plan order. Without one, every record on the selected network
is listed, or on all networks with --all.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			params := usecase.ShowStatusParams{AllNetworks: all}
			if len(args) == 1 {
				params.PlanPath = args[0]
			}

			entries, err := app.ShowStatus.Run(cmd.Context(), params)
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No deployment records found.")
				return nil
			}

			return app.StatusRenderer.Render(entries)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "List records on every network")

	return cmd
}
