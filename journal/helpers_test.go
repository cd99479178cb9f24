package journal

import (
	"time"

	"github.com/rustyeddy/straddle/broker"
	"github.com/shopspring/decimal"
)

func sampleEntry(sym, orderID string, at time.Time) Entry {
	return Entry{
		Symbol:     sym,
		Side:       broker.Buy,
		Qty:        40,
		Strike:     decimal.RequireFromString("190"),
		Expiration: "2024-05-10",
		Cost:       decimal.RequireFromString("5.00"),
		OrderID:    orderID,
		FillPrice:  decimal.RequireFromString("5.10"),
		Time:       at,
	}
}

// sameEntry compares entries by value; decimals keep their exponent
// through some backends but not others.
func sameEntry(a, b Entry) bool {
	return a.Symbol == b.Symbol &&
		a.Side == b.Side &&
		a.Qty == b.Qty &&
		a.Strike.Equal(b.Strike) &&
		a.Expiration == b.Expiration &&
		a.Cost.Equal(b.Cost) &&
		a.OrderID == b.OrderID &&
		a.FillPrice.Equal(b.FillPrice) &&
		a.Time.Equal(b.Time)
}
