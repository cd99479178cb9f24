package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rustyeddy/straddle/broker"
)

const selectEntries = `
	SELECT ticker, side, quantity, strike, expiration, straddle_cost, order_id, fill_price, ts
	FROM trade_log`

// GetByOrderID returns the entry recorded for a broker order id.
func (s *SQLiteStore) GetByOrderID(ctx context.Context, orderID string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, selectEntries+` WHERE order_id = ? ORDER BY seq ASC LIMIT 1`, orderID)

	e, err := scanEntry(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, fmt.Errorf("order %q not found", orderID)
		}
		return Entry{}, err
	}
	return e, nil
}

// ListBetween returns entries whose timestamp is within [start, end).
func (s *SQLiteStore) ListBetween(ctx context.Context, start, end time.Time) ([]Entry, error) {
	return s.query(ctx, selectEntries+`
		WHERE ts >= ? AND ts < ?
		ORDER BY ts ASC, seq ASC`, start.UTC(), end.UTC())
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(r scanner) (Entry, error) {
	var (
		e    Entry
		side string
	)
	err := r.Scan(
		&e.Symbol,
		&side,
		&e.Qty,
		&e.Strike,
		&e.Expiration,
		&e.Cost,
		&e.OrderID,
		&e.FillPrice,
		&e.Time,
	)
	if err != nil {
		return Entry{}, err
	}
	e.Side = broker.Side(side)
	e.Time = e.Time.UTC()
	return e, nil
}
