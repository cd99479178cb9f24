// Package signals reads the trade candidates produced by the upstream
// signal generator.
package signals

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rustyeddy/straddle/broker"
	"github.com/shopspring/decimal"
)

// Column names of the candidates file.
const (
	ColTicker     = "Ticker"
	ColPlay       = "Play"
	ColCost       = "Straddle Cost"
	ColStrike     = "Strike"
	ColExpiration = "Expiration"
)

var requiredColumns = []string{ColTicker, ColPlay, ColCost, ColStrike, ColExpiration}

var (
	ErrMissingColumns = errors.New("candidates file is missing required columns")
	ErrMalformedRow   = errors.New("malformed candidate row")
)

// Candidate is one trade candidate. It is immutable once read.
type Candidate struct {
	Symbol     string
	Side       broker.Side
	Play       string
	Cost       decimal.Decimal // reference cost per unit
	Strike     decimal.Decimal
	Expiration string
}

// Rejection is a row that could not be turned into a Candidate.
type Rejection struct {
	Row    int // 1-based data row, header excluded
	Symbol string
	Err    error
}

// Batch is the result of reading a candidates file.
type Batch struct {
	Candidates []Candidate
	Rejected   []Rejection
}

// ReadFile reads candidates from path.
func ReadFile(path string) (Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return Batch{}, fmt.Errorf("open candidates: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Read parses a candidates CSV. A missing header or missing required
// columns fail the whole read; bad rows, including rows the CSV reader
// cannot parse, are collected in Rejected.
func Read(r io.Reader) (Batch, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return Batch{}, nil
	}
	if err != nil {
		return Batch{}, fmt.Errorf("read candidates header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	var missing []string
	for _, c := range requiredColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return Batch{}, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	var b Batch
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		get := func(col string) string {
			i := idx[col]
			if i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return b, fmt.Errorf("read candidates row %d: %w", row, err)
			}
			// the reader has consumed the bad line; carry on with the next
			b.Rejected = append(b.Rejected, Rejection{Row: row, Symbol: strings.ToUpper(get(ColTicker)),
				Err: fmt.Errorf("%w: %w", ErrMalformedRow, err)})
			continue
		}

		c, err := parse(get)
		if err != nil {
			b.Rejected = append(b.Rejected, Rejection{Row: row, Symbol: get(ColTicker), Err: err})
			continue
		}
		b.Candidates = append(b.Candidates, c)
	}
	return b, nil
}

func parse(get func(string) string) (Candidate, error) {
	sym := strings.ToUpper(get(ColTicker))
	if sym == "" {
		return Candidate{}, fmt.Errorf("%w: empty ticker", ErrMalformedRow)
	}

	cost, err := decimal.NewFromString(get(ColCost))
	if err != nil {
		return Candidate{}, fmt.Errorf("%w: straddle cost %q", ErrMalformedRow, get(ColCost))
	}
	strike, err := decimal.NewFromString(get(ColStrike))
	if err != nil {
		return Candidate{}, fmt.Errorf("%w: strike %q", ErrMalformedRow, get(ColStrike))
	}

	play := get(ColPlay)
	return Candidate{
		Symbol:     sym,
		Side:       broker.SideFromPlay(play),
		Play:       play,
		Cost:       cost,
		Strike:     strike,
		Expiration: get(ColExpiration),
	}, nil
}
