package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/rustyeddy/straddle/risk"
	"github.com/spf13/cobra"
)

func newExitsCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "exits",
		Short: "Evaluate open positions and close those that hit an exit rule",
		Long: `List open positions and apply the exit rules in order:
take profit, stop loss, then maximum holding period. The first rule
that matches closes the position.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rep, err := a.exits(ctx, dryRun)
			printExits(cmd.OutOrStdout(), rep, dryRun)
			return a.finish(ctx, "exits", err)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report decisions without closing positions")
	return cmd
}

func (a *app) exits(ctx context.Context, dryRun bool) (risk.Report, error) {
	gw, err := a.newBroker(a.cfg)
	if err != nil {
		return risk.Report{}, err
	}

	ev := &risk.Evaluator{
		Gateway: gw,
		Policy:  risk.PolicyFromConfig(a.cfg.Exits),
		DryRun:  dryRun,
		Log:     a.log,
		Metrics: a.metrics,
	}
	return ev.Run(ctx)
}

func printExits(w io.Writer, rep risk.Report, dryRun bool) {
	for _, r := range rep.Results {
		state := "held"
		switch {
		case r.Decision.Action == risk.ActionSkip:
			state = "skipped: " + r.Err.Error()
		case r.Err != nil:
			state = "close failed: " + r.Err.Error()
		case r.Closed:
			state = "closed"
		case r.Decision.Close() && dryRun:
			state = "would close"
		}
		fmt.Fprintf(w, "%-8s %-11s %s (%s)\n", r.Symbol, r.Decision.Action, state, r.Decision.Reason)
	}
	fmt.Fprintf(w, "closed %d of %d positions\n", rep.Closed(), len(rep.Results))
}
