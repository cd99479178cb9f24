package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps the trade log in an insert-only SQLite table.
// Decimal columns are stored as TEXT so no precision is lost.
type SQLiteStore struct {
	db       *sql.DB
	readOnly bool
}

var (
	_ Store  = (*SQLiteStore)(nil)
	_ Ranger = (*SQLiteStore)(nil)
)

func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// OpenSQLiteReadOnly opens an existing database for queries without
// creating the file or the schema.
func OpenSQLiteReadOnly(path string) (*SQLiteStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open trade log: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open trade log: %w", err)
	}
	return &SQLiteStore{db: db, readOnly: true}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, entries []Entry) error {
	if s.readOnly {
		return ErrReadOnly
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trade_log
		(ticker, side, quantity, strike, expiration, straddle_cost, order_id, fill_price, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		_, err := stmt.ExecContext(ctx,
			e.Symbol, string(e.Side), e.Qty, e.Strike.String(), e.Expiration,
			e.Cost.String(), e.OrderID, e.FillPrice.String(), e.Time.UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert %s: %w", e.OrderID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Entries(ctx context.Context) ([]Entry, error) {
	return s.query(ctx, selectEntries+` ORDER BY seq ASC`)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
