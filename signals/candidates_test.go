package signals

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rustyeddy/straddle/broker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "Ticker,Play,Straddle Cost,Strike,Expiration\n"

func TestRead(t *testing.T) {
	in := header +
		"AAPL,BUY straddle,5.00,190,2024-05-10\n" +
		"tsla,Sell Straddle,12.35,175.5,2024-05-10\n"

	b, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, b.Candidates, 2)
	assert.Empty(t, b.Rejected)

	a := b.Candidates[0]
	assert.Equal(t, "AAPL", a.Symbol)
	assert.Equal(t, broker.Buy, a.Side)
	assert.Equal(t, "5", a.Cost.String())
	assert.Equal(t, "190", a.Strike.String())
	assert.Equal(t, "2024-05-10", a.Expiration)

	s := b.Candidates[1]
	assert.Equal(t, "TSLA", s.Symbol)
	assert.Equal(t, broker.Sell, s.Side)
	assert.Equal(t, "12.35", s.Cost.String())
}

func TestRead_ColumnOrderAndExtras(t *testing.T) {
	in := "Expiration,Strike,Extra,Straddle Cost,Play,Ticker\n" +
		"2024-05-10,100,x,2.5,buy,MSFT\n"

	b, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, b.Candidates, 1)
	assert.Equal(t, "MSFT", b.Candidates[0].Symbol)
	assert.Equal(t, "2.5", b.Candidates[0].Cost.String())
}

func TestRead_MissingColumns(t *testing.T) {
	_, err := Read(strings.NewReader("Ticker,Play,Strike\nAAPL,BUY,190\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumns)
	assert.Contains(t, err.Error(), "Straddle Cost")
	assert.Contains(t, err.Error(), "Expiration")
}

func TestRead_Empty(t *testing.T) {
	b, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, b.Candidates)

	b, err = Read(strings.NewReader(header))
	require.NoError(t, err)
	assert.Empty(t, b.Candidates)
}

func TestRead_MalformedRowsSkipped(t *testing.T) {
	in := header +
		"AAPL,BUY,abc,190,2024-05-10\n" +
		",BUY,5,190,2024-05-10\n" +
		"NVDA,BUY,7,n/a,2024-05-10\n" +
		"AMD,BUY,3,150,2024-05-10\n"

	b, err := Read(strings.NewReader(in))
	require.NoError(t, err)

	require.Len(t, b.Candidates, 1)
	assert.Equal(t, "AMD", b.Candidates[0].Symbol)

	require.Len(t, b.Rejected, 3)
	assert.Equal(t, 1, b.Rejected[0].Row)
	assert.Equal(t, "AAPL", b.Rejected[0].Symbol)
	assert.Equal(t, 3, b.Rejected[2].Row)
	for _, r := range b.Rejected {
		assert.ErrorIs(t, r.Err, ErrMalformedRow)
	}
}

func TestRead_UnparsableRowDoesNotStopRead(t *testing.T) {
	in := header +
		"AAPL,BUY,5,190,2024-05-10\n" +
		"MSFT,BUY \"wide\" straddle,4,400,2024-05-10\n" +
		"TSLA,SELL,6,170,2024-05-10\n"

	b, err := Read(strings.NewReader(in))
	require.NoError(t, err)

	require.Len(t, b.Candidates, 2)
	assert.Equal(t, "AAPL", b.Candidates[0].Symbol)
	assert.Equal(t, "TSLA", b.Candidates[1].Symbol)

	require.Len(t, b.Rejected, 1)
	assert.Equal(t, 2, b.Rejected[0].Row)
	assert.ErrorIs(t, b.Rejected[0].Err, ErrMalformedRow)

	var pe *csv.ParseError
	assert.ErrorAs(t, b.Rejected[0].Err, &pe)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.csv")
	require.NoError(t, os.WriteFile(path, []byte(header+"AAPL,BUY,5,190,2024-05-10\n"), 0600))

	b, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, b.Candidates, 1)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
