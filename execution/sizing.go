package execution

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/straddle/broker"
	"github.com/rustyeddy/straddle/signals"
	"github.com/shopspring/decimal"
)

var (
	ErrNonPositiveCost = errors.New("cost per unit must be positive")
	ErrBelowOneUnit    = errors.New("capital does not cover one unit")
)

// SizedOrder is a candidate with its whole-unit quantity.
type SizedOrder struct {
	Candidate signals.Candidate
	Qty       int64
}

// Request is the market order for o. The client order id is left to
// the caller.
func (o SizedOrder) Request() broker.OrderRequest {
	return broker.OrderRequest{Symbol: o.Candidate.Symbol, Qty: o.Qty, Side: o.Candidate.Side}
}

// Size returns floor(capital / cost). The quotient is exact; no rounding
// happens before the floor.
func Size(capital, cost decimal.Decimal) (int64, error) {
	if cost.Sign() <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrNonPositiveCost, cost)
	}

	q, _ := capital.QuoRem(cost, 0)
	if q.LessThan(decimal.NewFromInt(1)) {
		return 0, fmt.Errorf("%w: capital %s, cost %s", ErrBelowOneUnit, capital, cost)
	}
	return q.IntPart(), nil
}

// SizeCandidate sizes c against capital.
func SizeCandidate(capital decimal.Decimal, c signals.Candidate) (SizedOrder, error) {
	qty, err := Size(capital, c.Cost)
	if err != nil {
		return SizedOrder{}, err
	}
	return SizedOrder{Candidate: c, Qty: qty}, nil
}
