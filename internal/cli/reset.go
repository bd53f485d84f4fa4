package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/catapult/internal/cli/render"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// NewResetCmd creates the reset command
func NewResetCmd() *cobra.Command {
	var steps []string

	cmd := &cobra.Command{
		Use:   "reset <plan.yaml>",
		Short: "Clear failed steps so the next run retries them",
		Long: `Reset failed steps of a plan on the selected network back to pending.

A failed step blocks every later run of the plan until it is reset. By default
every failed step is reset; use --step to pick specific ones. Steps that did not
fail are never touched.`,
		Example: `  catapult reset deploy/finswap.yaml
  catapult reset deploy/finswap.yaml -n sepolia --step Factory`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.ResetStep.Run(cmd.Context(), usecase.ResetStepParams{
				PlanPath: args[0],
				Steps:    steps,
			})
			if err != nil {
				return err
			}

			if len(result.Reset) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to reset. No failed steps found.")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(
				fmt.Sprintf("Reset %d step(s): %s", len(result.Reset), strings.Join(result.Reset, ", "))))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&steps, "step", nil, "Step to reset (repeatable)")

	return cmd
}
