package risk

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Action is what the exit rules decided for a position.
type Action string

const (
	ActionTakeProfit Action = "take_profit"
	ActionStopLoss   Action = "stop_loss"
	ActionMaxHold    Action = "max_hold"
	ActionHold       Action = "hold"
	ActionSkip       Action = "skip" // position data unusable
)

// Snapshot is the state of one position at evaluation time.
type Snapshot struct {
	Symbol   string
	PLPC     decimal.Decimal
	DaysHeld int
}

// Rule closes a position when Match reports true.
type Rule struct {
	Action Action
	Match  func(p Policy, s Snapshot) (bool, string)
}

// Rules are evaluated in order; the first match wins.
var Rules = []Rule{
	{
		Action: ActionTakeProfit,
		Match: func(p Policy, s Snapshot) (bool, string) {
			return s.PLPC.GreaterThanOrEqual(p.TakeProfit),
				fmt.Sprintf("P/L %s >= take profit %s", pct(s.PLPC), pct(p.TakeProfit))
		},
	},
	{
		Action: ActionStopLoss,
		Match: func(p Policy, s Snapshot) (bool, string) {
			return s.PLPC.LessThanOrEqual(p.StopLoss),
				fmt.Sprintf("P/L %s <= stop loss %s", pct(s.PLPC), pct(p.StopLoss))
		},
	},
	{
		Action: ActionMaxHold,
		Match: func(p Policy, s Snapshot) (bool, string) {
			return s.DaysHeld > p.MaxHoldDays,
				fmt.Sprintf("held %d days > max %d", s.DaysHeld, p.MaxHoldDays)
		},
	},
}

type Decision struct {
	Action Action
	Reason string
}

// Close reports whether the decision closes the position.
func (d Decision) Close() bool {
	switch d.Action {
	case ActionTakeProfit, ActionStopLoss, ActionMaxHold:
		return true
	}
	return false
}

// Decide applies Rules to s.
func Decide(p Policy, s Snapshot) Decision {
	for _, r := range Rules {
		if ok, why := r.Match(p, s); ok {
			return Decision{Action: r.Action, Reason: why}
		}
	}
	return Decision{
		Action: ActionHold,
		Reason: fmt.Sprintf("P/L %s, held %d days", pct(s.PLPC), s.DaysHeld),
	}
}

func pct(d decimal.Decimal) string {
	return d.Shift(2).StringFixed(2) + "%"
}
