package risk

import (
	"github.com/rustyeddy/straddle/config"
	"github.com/shopspring/decimal"
)

// Policy holds the exit thresholds. P/L values are fractions of cost
// basis, so 0.15 means +15%.
type Policy struct {
	TakeProfit decimal.Decimal // close at or above, e.g. 0.15
	StopLoss   decimal.Decimal // close at or below, e.g. -0.10

	MaxHoldDays int // close when held strictly longer

	// DefaultHeldDays is assumed when no submission time can be found
	// for a position.
	DefaultHeldDays int
}

func DefaultPolicy() Policy {
	return Policy{
		TakeProfit:      decimal.RequireFromString("0.15"),
		StopLoss:        decimal.RequireFromString("-0.10"),
		MaxHoldDays:     3,
		DefaultHeldDays: 1,
	}
}

// PolicyFromConfig converts the exits section of the config.
func PolicyFromConfig(c config.ExitsConfig) Policy {
	return Policy{
		TakeProfit:      decimal.NewFromFloat(c.TakeProfit),
		StopLoss:        decimal.NewFromFloat(c.StopLoss),
		MaxHoldDays:     c.MaxHoldDays,
		DefaultHeldDays: c.DefaultHeldDays,
	}
}
