package journal

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rustyeddy/straddle/broker"
	"github.com/shopspring/decimal"
)

// Header is the fixed column layout of the CSV trade log.
var Header = []string{
	"Ticker", "Side", "Quantity", "Strike", "Expiration",
	"Straddle Cost", "Order ID", "Fill Price", "Timestamp",
}

// CSVStore appends entries to a flat CSV file.
type CSVStore struct {
	path     string
	readOnly bool

	mu sync.Mutex
	f  *os.File
	w  *csv.Writer
}

var _ Store = (*CSVStore)(nil)

// NewCSV opens or creates the log at path. The header is written only when
// the file is empty; an existing file with a different header is rejected.
func NewCSV(path string) (*CSVStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open trade log: %w", err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	w := csv.NewWriter(f)
	if st.Size() == 0 {
		if err := w.Write(Header); err != nil {
			f.Close()
			return nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, err
		}
	} else if err := checkHeader(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &CSVStore{path: path, f: f, w: w}, nil
}

// OpenCSVReadOnly opens an existing log for queries. It never creates the
// file or writes a header.
func OpenCSVReadOnly(path string) (*CSVStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trade log: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if st.Size() > 0 {
		if err := checkHeader(f); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return &CSVStore{path: path, readOnly: true}, nil
}

func checkHeader(r io.Reader) error {
	got, err := csv.NewReader(r).Read()
	if err != nil {
		return fmt.Errorf("%w: unreadable header: %v", ErrSchemaMismatch, err)
	}
	for i := range got {
		got[i] = strings.TrimSpace(got[i])
	}
	if strings.Join(got, ",") != strings.Join(Header, ",") {
		return fmt.Errorf("%w: header %q", ErrSchemaMismatch, strings.Join(got, ","))
	}
	return nil
}

func (s *CSVStore) Append(ctx context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readOnly {
		return ErrReadOnly
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.w.Write(toRecord(e)); err != nil {
			return err
		}
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return err
	}
	return s.f.Sync()
}

func (s *CSVStore) Entries(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadCSV(f)
}

func (s *CSVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readOnly {
		return nil
	}

	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

// ReadCSV parses a trade log produced by CSVStore.
func ReadCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}

	var out []Entry
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedEntry, row, err)
		}
		e, err := fromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func toRecord(e Entry) []string {
	return []string{
		e.Symbol,
		string(e.Side),
		strconv.FormatInt(e.Qty, 10),
		e.Strike.String(),
		e.Expiration,
		e.Cost.String(),
		e.OrderID,
		e.FillPrice.String(),
		e.Time.UTC().Format(time.RFC3339Nano),
	}
}

func fromRecord(rec []string) (Entry, error) {
	qty, err := strconv.ParseInt(rec[2], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: quantity %q", ErrMalformedEntry, rec[2])
	}
	strike, err := decimal.NewFromString(rec[3])
	if err != nil {
		return Entry{}, fmt.Errorf("%w: strike %q", ErrMalformedEntry, rec[3])
	}
	cost, err := decimal.NewFromString(rec[5])
	if err != nil {
		return Entry{}, fmt.Errorf("%w: straddle cost %q", ErrMalformedEntry, rec[5])
	}
	fill, err := decimal.NewFromString(rec[7])
	if err != nil {
		return Entry{}, fmt.Errorf("%w: fill price %q", ErrMalformedEntry, rec[7])
	}
	ts, err := time.Parse(time.RFC3339Nano, rec[8])
	if err != nil {
		return Entry{}, fmt.Errorf("%w: timestamp %q", ErrMalformedEntry, rec[8])
	}

	return Entry{
		Symbol:     rec[0],
		Side:       broker.Side(rec[1]),
		Qty:        qty,
		Strike:     strike,
		Expiration: rec[4],
		Cost:       cost,
		OrderID:    rec[6],
		FillPrice:  fill,
		Time:       ts.UTC(),
	}, nil
}
