// Package journal is the append-only trade log.
package journal

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rustyeddy/straddle/broker"
	"github.com/shopspring/decimal"
)

var (
	// ErrSchemaMismatch is returned when an existing log has a different layout.
	ErrSchemaMismatch = errors.New("trade log schema mismatch")
	ErrMalformedEntry = errors.New("malformed trade log entry")
	ErrReadOnly       = errors.New("trade log opened read-only")
)

// Entry records one filled order. Entries are never mutated or deleted.
type Entry struct {
	Symbol     string          `json:"symbol"`
	Side       broker.Side     `json:"side"`
	Qty        int64           `json:"qty"`
	Strike     decimal.Decimal `json:"strike"`
	Expiration string          `json:"expiration"`
	Cost       decimal.Decimal `json:"straddle_cost"`
	OrderID    string          `json:"order_id"`
	FillPrice  decimal.Decimal `json:"fill_price"`
	Time       time.Time       `json:"timestamp"` // UTC
}

// Notional is the filled value of the entry.
func (e Entry) Notional() decimal.Decimal {
	return e.FillPrice.Mul(decimal.NewFromInt(e.Qty))
}

// Store is an append-only trade log.
type Store interface {
	// Append persists entries in order. Prior entries are never rewritten.
	Append(ctx context.Context, entries []Entry) error
	// Entries returns every entry in append order.
	Entries(ctx context.Context) ([]Entry, error)
	Close() error
}

// Ranger is implemented by stores that can filter by time natively.
type Ranger interface {
	ListBetween(ctx context.Context, start, end time.Time) ([]Entry, error)
}

// Between returns entries with a timestamp in [start, end), oldest first.
func Between(ctx context.Context, s Store, start, end time.Time) ([]Entry, error) {
	if r, ok := s.(Ranger); ok {
		return r.ListBetween(ctx, start, end)
	}

	all, err := s.Entries(ctx)
	if err != nil {
		return nil, err
	}

	var out []Entry
	for _, e := range all {
		if !e.Time.Before(start) && e.Time.Before(end) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}
