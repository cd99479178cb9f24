package risk

import (
	"testing"
	"time"

	"github.com/rustyeddy/straddle/broker"
	"github.com/rustyeddy/straddle/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDecide(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	tests := []struct {
		name string
		plpc string
		days int
		want Action
	}{
		{"take profit inclusive", "0.15", 0, ActionTakeProfit},
		{"just under take profit", "0.149", 0, ActionHold},
		{"stop loss inclusive", "-0.10", 0, ActionStopLoss},
		{"just above stop loss", "-0.0999", 1, ActionHold},
		{"held exactly max", "0", 3, ActionHold},
		{"held past max", "0", 4, ActionMaxHold},
		{"take profit beats max hold", "0.20", 10, ActionTakeProfit},
		{"stop loss beats max hold", "-0.12", 10, ActionStopLoss},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Decide(p, Snapshot{Symbol: "X", PLPC: d(tt.plpc), DaysHeld: tt.days})
			assert.Equal(t, tt.want, got.Action)
			assert.Equal(t, tt.want != ActionHold, got.Close())
			assert.NotEmpty(t, got.Reason)
		})
	}
}

func TestDecideReason(t *testing.T) {
	got := Decide(DefaultPolicy(), Snapshot{PLPC: d("-0.12")})
	assert.Equal(t, "P/L -12.00% <= stop loss -10.00%", got.Reason)
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(config.Default().Exits)
	def := DefaultPolicy()

	assert.True(t, def.TakeProfit.Equal(p.TakeProfit))
	assert.True(t, def.StopLoss.Equal(p.StopLoss))
	assert.Equal(t, def.MaxHoldDays, p.MaxHoldDays)
	assert.Equal(t, def.DefaultHeldDays, p.DefaultHeldDays)
}

func TestHeldSince(t *testing.T) {
	t.Parallel()

	newer := time.Date(2024, 5, 3, 14, 0, 0, 0, time.UTC)
	older := time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)

	got := HeldSince([]broker.Order{
		{Symbol: "AAPL", Side: broker.Sell, SubmittedAt: newer},
		{Symbol: "AAPL", Side: broker.Buy, SubmittedAt: newer},
		{Symbol: "AAPL", Side: broker.Buy, SubmittedAt: older},
		{Symbol: "TSLA", Side: broker.Buy},
		{Symbol: "TSLA", Side: broker.Buy, SubmittedAt: older},
		{Symbol: "MSFT", Side: broker.Sell, SubmittedAt: older},
	})

	assert.Equal(t, map[string]time.Time{"AAPL": newer, "TSLA": older}, got)
}

func TestDaysHeld(t *testing.T) {
	t.Parallel()

	since := time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, DaysHeld(since, since.Add(23*time.Hour+59*time.Minute)))
	assert.Equal(t, 1, DaysHeld(since, since.Add(24*time.Hour)))
	assert.Equal(t, 3, DaysHeld(since, since.Add(3*24*time.Hour+23*time.Hour)))
	assert.Equal(t, 0, DaysHeld(since, since.Add(-time.Hour)))
}
