package risk

import (
	"time"

	"github.com/rustyeddy/straddle/broker"
)

// HeldSince returns, per symbol, the submission time of the first buy
// order in orders that carries one. Orders are taken in the order given.
func HeldSince(orders []broker.Order) map[string]time.Time {
	out := make(map[string]time.Time)
	for _, o := range orders {
		if o.Side != broker.Buy || o.SubmittedAt.IsZero() {
			continue
		}
		if _, seen := out[o.Symbol]; seen {
			continue
		}
		out[o.Symbol] = o.SubmittedAt
	}
	return out
}

// DaysHeld is the number of whole days between since and now, truncated.
func DaysHeld(since, now time.Time) int {
	d := now.Sub(since)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}
