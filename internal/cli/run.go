package cli

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	var (
		resume  bool
		fresh   bool
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "run <plan.yaml>",
		Short: "Deploy or resume a deployment plan",
		Long: `Run a deployment plan on the selected network.

Every step is recorded as it progresses, so running the same plan again picks
up where the last run stopped. Steps that are already deployed and verified are
reused without sending any transaction.

A step that failed stays failed until it is cleared with 'catapult reset'.`,
		Example: `  # Deploy the plan on the local network
  catapult run deploy/finswap.yaml

  # Resume an interrupted run on sepolia and write the address manifest
  catapult run deploy/finswap.yaml -n sepolia --resume --out deployments/sepolia.json

  # Archive the previous record and deploy everything again
  catapult run deploy/finswap.yaml --fresh --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.RunPlan.Run(cmd.Context(), usecase.RunPlanParams{
				PlanPath: args[0],
				Resume:   resume,
				Fresh:    fresh,
				OutPath:  outPath,
			})
			if err != nil {
				if !errors.Is(err, usecase.ErrAborted) {
					app.RunRenderer.RenderFailure(result)
				}
				return err
			}

			return app.RunRenderer.RenderResult(result)
		},
	}

	cmd.Flags().BoolVar(&resume, "resume", false, "Require an existing record and continue it")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "Archive any existing record and start over")
	cmd.Flags().StringVar(&outPath, "out", "", "Write the address manifest to this path")
	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	cmd.MarkFlagsMutuallyExclusive("resume", "fresh")

	return cmd
}
