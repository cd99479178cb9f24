package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/rustyeddy/straddle/execution"
	"github.com/rustyeddy/straddle/internal/id"
	"github.com/rustyeddy/straddle/journal"
	"github.com/rustyeddy/straddle/signals"
	"github.com/spf13/cobra"
)

func newExecuteCmd(a *app) *cobra.Command {
	var signalsPath string

	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Submit orders for trade candidates and record fills",
		Long: `Read trade candidates from a CSV file, size each one from the
configured capital per trade, submit market orders one at a time, wait
for fills and append every filled order to the trade log.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rep, err := a.execute(ctx, signalsPath)
			printExecution(cmd.OutOrStdout(), rep)
			return a.finish(ctx, "execute", err)
		},
	}

	cmd.Flags().StringVar(&signalsPath, "signals", "", "Candidates CSV (default from config)")
	return cmd
}

func (a *app) execute(ctx context.Context, path string) (execution.Report, error) {
	if path == "" {
		path = a.cfg.Execution.SignalsFile
	}

	batch, err := signals.ReadFile(path)
	if err != nil {
		return execution.Report{}, fmt.Errorf("read signals: %w", err)
	}
	for _, r := range batch.Rejected {
		a.metrics.ObserveOrder(string(execution.OutcomeMalformed))
		a.log.Warn("candidate not traded",
			"symbol", r.Symbol,
			"outcome", string(execution.OutcomeMalformed),
			"row", r.Row,
			"reason", r.Err.Error(),
		)
	}
	if len(batch.Candidates) == 0 {
		a.log.Info("no signals to trade", "file", path)
		return execution.Report{}, nil
	}

	gw, err := a.newBroker(a.cfg)
	if err != nil {
		return execution.Report{}, err
	}

	store, err := journal.Open(a.cfg.Journal)
	if err != nil {
		return execution.Report{}, fmt.Errorf("open trade log: %w", err)
	}
	defer store.Close()

	poller := &execution.Poller{
		Gateway:      gw,
		Interval:     a.cfg.Execution.Interval(),
		Timeout:      a.cfg.Execution.Timeout(),
		CheckTimeout: a.cfg.BrokerTimeout(),
		Log:          a.log,
		Metrics:      a.metrics,
	}

	orch := execution.NewOrchestrator(gw, poller, store)
	orch.Capital = a.cfg.Execution.Capital()
	orch.Pause = a.cfg.Execution.Pause()
	orch.OrderID = id.ClientOrderID
	orch.Log = a.log
	orch.Metrics = a.metrics

	a.log.Info("execution started", "file", path, "candidates", len(batch.Candidates),
		"capital_per_trade", orch.Capital.String())
	return orch.Execute(ctx, batch.Candidates)
}

func printExecution(w io.Writer, rep execution.Report) {
	for _, r := range rep.Results {
		line := fmt.Sprintf("%-8s %-9s qty=%d", r.Symbol, r.Outcome, r.Qty)
		if r.OrderID != "" {
			line += " order=" + r.OrderID
		}
		if r.Err != nil {
			line += " reason=" + r.Err.Error()
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "filled %d of %d candidates\n", rep.Count(execution.OutcomeFilled), len(rep.Results))
}
