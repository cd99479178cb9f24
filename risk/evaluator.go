package risk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/straddle/broker"
	"github.com/rustyeddy/straddle/internal/logger"
	"github.com/rustyeddy/straddle/metrics"
	"github.com/shopspring/decimal"
)

// ErrCloseFailed wraps a failed close of a single position.
var ErrCloseFailed = errors.New("close position failed")

// Evaluator runs one exit pass over the open positions.
type Evaluator struct {
	Gateway broker.Broker
	Policy  Policy
	DryRun  bool // report decisions without closing

	Now     func() time.Time
	Log     *slog.Logger
	Metrics *metrics.Metrics
}

// Result is the outcome for one position.
type Result struct {
	Symbol    string
	PLPC      decimal.Decimal
	DaysHeld  int
	HeldKnown bool // false when DaysHeld is the policy default
	Decision  Decision
	Closed    bool
	Err       error
}

type Report struct {
	Results []Result
}

// Closed counts positions closed in this pass.
func (r Report) Closed() int {
	n := 0
	for _, res := range r.Results {
		if res.Closed {
			n++
		}
	}
	return n
}

// Failed counts positions whose close failed.
func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if errors.Is(res.Err, ErrCloseFailed) {
			n++
		}
	}
	return n
}

// Skipped counts positions left alone because their data was unusable.
func (r Report) Skipped() int {
	n := 0
	for _, res := range r.Results {
		if res.Decision.Action == ActionSkip {
			n++
		}
	}
	return n
}

// Run lists positions, decides each one and closes those that match a
// rule. Failing to list positions fails the pass; a failed close only
// affects its own position.
func (e *Evaluator) Run(ctx context.Context) (Report, error) {
	log := logger.OrDefault(e.Log)
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}

	var rep Report

	positions, err := e.Gateway.ListPositions(ctx)
	if err != nil {
		e.Metrics.ObserveGatewayError("list positions", broker.Class(err))
		return rep, fmt.Errorf("list positions: %w", err)
	}
	if len(positions) == 0 {
		log.Info("no open positions")
		return rep, nil
	}

	since := map[string]time.Time{}
	orders, err := e.Gateway.ListOrders(ctx, broker.RecentOrders)
	if err != nil {
		e.Metrics.ObserveGatewayError("list orders", broker.Class(err))
		log.Warn("order history unavailable, using default holding period",
			"default_days", e.Policy.DefaultHeldDays, "err", err)
	} else {
		since = HeldSince(orders)
	}

	at := now()
	for _, p := range positions {
		if p.Err != nil {
			res := Result{
				Symbol:   p.Symbol,
				Decision: Decision{Action: ActionSkip, Reason: "unusable position data"},
				Err:      p.Err,
			}
			log.Warn("skipping position", "symbol", p.Symbol, "action", string(ActionSkip), "err", p.Err)
			e.Metrics.ObserveExit(string(ActionSkip))
			rep.Results = append(rep.Results, res)
			continue
		}

		res := Result{Symbol: p.Symbol, PLPC: p.UnrealizedPLPC, DaysHeld: e.Policy.DefaultHeldDays}
		if t, ok := since[p.Symbol]; ok {
			res.DaysHeld = DaysHeld(t, at)
			res.HeldKnown = true
		}

		res.Decision = Decide(e.Policy, Snapshot{Symbol: p.Symbol, PLPC: p.UnrealizedPLPC, DaysHeld: res.DaysHeld})
		attrs := []any{
			"symbol", p.Symbol,
			"action", string(res.Decision.Action),
			"reason", res.Decision.Reason,
			"days_held", res.DaysHeld,
		}

		switch {
		case !res.Decision.Close():
			log.Info("holding position", attrs...)
		case e.DryRun:
			log.Info("would close position", attrs...)
		default:
			if err := e.Gateway.ClosePosition(ctx, p.Symbol); err != nil {
				e.Metrics.ObserveGatewayError("close position", broker.Class(err))
				res.Err = fmt.Errorf("%w: %s: %w", ErrCloseFailed, p.Symbol, err)
				log.Error("close failed", append(attrs, "err", err)...)
			} else {
				res.Closed = true
				log.Info("closed position", attrs...)
			}
		}

		e.Metrics.ObserveExit(string(res.Decision.Action))
		rep.Results = append(rep.Results, res)
	}

	log.Info("exit pass finished",
		"positions", len(positions),
		"closed", rep.Closed(),
		"failed", rep.Failed(),
		"skipped", rep.Skipped(),
		"dry_run", e.DryRun,
	)
	return rep, nil
}
