package cli

import (
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		signalsPath string
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute trade candidates, then run an exit pass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rep, err := a.execute(ctx, signalsPath)
			printExecution(cmd.OutOrStdout(), rep)
			if err != nil {
				return a.finish(ctx, "run", err)
			}

			exits, err := a.exits(ctx, dryRun)
			printExits(cmd.OutOrStdout(), exits, dryRun)
			return a.finish(ctx, "run", err)
		},
	}

	cmd.Flags().StringVar(&signalsPath, "signals", "", "Candidates CSV (default from config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report exit decisions without closing positions")
	return cmd
}
