package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/straddle/broker"
	"github.com/rustyeddy/straddle/internal/logger"
	"github.com/rustyeddy/straddle/journal"
	"github.com/rustyeddy/straddle/metrics"
	"github.com/rustyeddy/straddle/signals"
	"github.com/shopspring/decimal"
)

const (
	DefaultCapitalPerTrade = 200
	DefaultOrderPause      = time.Second
)

// ErrBrokerUnavailable aborts a run whose first broker call could not
// connect or authenticate.
var ErrBrokerUnavailable = errors.New("broker unavailable")

// Outcome is the result of processing one candidate.
type Outcome string

const (
	OutcomeFilled    Outcome = "filled"
	OutcomeSkipped   Outcome = "skipped"   // quantity below one unit
	OutcomeRejected  Outcome = "rejected"  // broker refused the order
	OutcomeTimeout   Outcome = "timeout"   // no fill within the poll timeout
	OutcomeFailed    Outcome = "failed"    // any other gateway failure
	OutcomeMalformed Outcome = "malformed" // bad candidate or broker data
)

// Result describes what happened to one candidate.
type Result struct {
	Symbol  string
	Qty     int64
	OrderID string
	Outcome Outcome
	Err     error
}

// Report summarises an execution run.
type Report struct {
	Results []Result
	Entries []journal.Entry
}

// Count returns how many candidates ended with o.
func (r Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Orchestrator submits candidates one at a time and records fills.
type Orchestrator struct {
	Gateway broker.Broker
	Poller  *Poller
	Store   journal.Store // nil keeps entries in the report only

	Capital decimal.Decimal
	Pause   time.Duration // minimum spacing after a submission the broker answered

	Sleep   SleepFunc
	Now     func() time.Time
	OrderID func(symbol string) string // client order id; nil sends none
	Log     *slog.Logger
	Metrics *metrics.Metrics
}

// NewOrchestrator wires an orchestrator with default capital and pause.
func NewOrchestrator(gw broker.Broker, p *Poller, store journal.Store) *Orchestrator {
	return &Orchestrator{
		Gateway: gw,
		Poller:  p,
		Store:   store,
		Capital: decimal.NewFromInt(DefaultCapitalPerTrade),
		Pause:   DefaultOrderPause,
	}
}

// Execute processes candidates in order. Per-candidate failures are
// reported in the Report; only a broker that is unreachable on the first
// call, a trade log write failure, or caller cancellation stop the run.
func (o *Orchestrator) Execute(ctx context.Context, cands []signals.Candidate) (Report, error) {
	log := logger.OrDefault(o.Log)

	var rep Report
	if len(cands) == 0 {
		log.Info("no signals to trade")
		return rep, nil
	}

	sleep := o.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	now := o.Now
	if now == nil {
		now = time.Now
	}

	calledBroker := false
	reached := false // an earlier submission got a broker response

	for _, c := range cands {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		res := Result{Symbol: c.Symbol}
		record := func(out Outcome, err error) {
			res.Outcome, res.Err = out, err
			rep.Results = append(rep.Results, res)
			o.Metrics.ObserveOrder(string(out))
			attrs := []any{"symbol", res.Symbol, "outcome", string(out)}
			if res.OrderID != "" {
				attrs = append(attrs, "order_id", res.OrderID)
			}
			if err != nil {
				log.Warn("candidate not traded", append(attrs, "reason", err.Error())...)
			}
		}

		so, err := SizeCandidate(o.Capital, c)
		switch {
		case errors.Is(err, ErrNonPositiveCost):
			record(OutcomeMalformed, err)
			continue
		case err != nil:
			record(OutcomeSkipped, err)
			continue
		}
		qty := so.Qty
		res.Qty = qty

		if reached {
			if err := sleep(ctx, o.Pause); err != nil {
				return rep, err
			}
		}

		req := so.Request()
		if o.OrderID != nil {
			req.ClientOrderID = o.OrderID(c.Symbol)
		}

		order, err := o.Gateway.SubmitOrder(ctx, req)
		first := !calledBroker
		calledBroker = true
		if err == nil || !errors.Is(err, broker.ErrTransport) {
			reached = true
		}
		if err != nil {
			o.Metrics.ObserveGatewayError("submit order", broker.Class(err))
			if first && broker.IsConnectivity(err) {
				return rep, fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
			}
			record(submitOutcome(err), err)
			continue
		}
		res.OrderID = order.ID
		log.Info("order submitted", "symbol", c.Symbol, "qty", qty, "side", string(c.Side),
			"order_id", order.ID, "client_order_id", req.ClientOrderID)

		price, err := o.Poller.Wait(ctx, order.ID)
		if err != nil {
			out := OutcomeFailed
			switch {
			case errors.Is(err, ErrFillTimeout):
				out = OutcomeTimeout
				// The order is not cancelled and may still fill later.
				log.Warn("order left open at broker", "symbol", c.Symbol, "order_id", order.ID)
			case errors.Is(err, broker.ErrMalformed):
				out = OutcomeMalformed
			}
			record(out, err)
			continue
		}

		e := journal.Entry{
			Symbol:     c.Symbol,
			Side:       c.Side,
			Qty:        so.Qty,
			Strike:     c.Strike,
			Expiration: c.Expiration,
			Cost:       c.Cost,
			OrderID:    order.ID,
			FillPrice:  price,
			Time:       now().UTC(),
		}
		if o.Store != nil {
			if err := o.Store.Append(context.WithoutCancel(ctx), []journal.Entry{e}); err != nil {
				log.Error("trade log write failed", "symbol", c.Symbol, "order_id", order.ID, "err", err)
				record(OutcomeFilled, nil)
				return rep, fmt.Errorf("append trade log for %s: %w", order.ID, err)
			}
		}
		rep.Entries = append(rep.Entries, e)
		record(OutcomeFilled, nil)
		log.Info("order filled", "symbol", c.Symbol, "outcome", string(OutcomeFilled),
			"order_id", order.ID, "qty", qty, "fill_price", price.String())
	}

	log.Info("execution finished",
		"candidates", len(cands),
		"filled", rep.Count(OutcomeFilled),
		"skipped", rep.Count(OutcomeSkipped),
		"rejected", rep.Count(OutcomeRejected),
		"timeout", rep.Count(OutcomeTimeout),
		"failed", rep.Count(OutcomeFailed),
		"malformed", rep.Count(OutcomeMalformed),
	)
	return rep, nil
}

func submitOutcome(err error) Outcome {
	switch {
	case errors.Is(err, broker.ErrRejected):
		return OutcomeRejected
	case errors.Is(err, broker.ErrMalformed):
		return OutcomeMalformed
	default:
		return OutcomeFailed
	}
}
