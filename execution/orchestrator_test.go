package execution

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rustyeddy/straddle/broker"
	"github.com/rustyeddy/straddle/journal"
	"github.com/rustyeddy/straddle/metrics"
	"github.com/rustyeddy/straddle/signals"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pause = 7 * time.Second // distinct from the poll interval

type memStore struct {
	mu      sync.Mutex
	appends [][]journal.Entry
	err     error
}

func (s *memStore) Append(ctx context.Context, entries []journal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.appends = append(s.appends, entries)
	return nil
}

func (s *memStore) Entries(ctx context.Context) ([]journal.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []journal.Entry
	for _, a := range s.appends {
		out = append(out, a...)
	}
	return out, nil
}

func (s *memStore) Close() error { return nil }

func candidate(sym, play, cost string) signals.Candidate {
	return signals.Candidate{
		Symbol:     sym,
		Side:       broker.SideFromPlay(play),
		Play:       play,
		Cost:       decimal.RequireFromString(cost),
		Strike:     decimal.RequireFromString("190"),
		Expiration: "2024-05-10",
	}
}

func newTestOrchestrator(fb *fakeBroker, store journal.Store, rec *sleepRecorder) *Orchestrator {
	o := NewOrchestrator(fb, newTestPoller(fb, rec), store)
	o.Pause = pause
	o.Sleep = rec.Sleep
	o.Now = func() time.Time { return time.Date(2024, 5, 1, 13, 30, 0, 0, time.UTC) }
	return o
}

func TestExecuteFillsAndLogs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "trade_log.csv")
	store, err := journal.NewCSV(path)
	require.NoError(t, err)
	defer store.Close()

	fb := newFakeBroker()
	fb.script["AAPL"] = []broker.Order{pending(), filledAt("5.10")}
	rec := &sleepRecorder{}

	o := newTestOrchestrator(fb, store, rec)
	rep, err := o.Execute(ctx, []signals.Candidate{candidate("AAPL", "BUY straddle", "5.00")})
	require.NoError(t, err)

	require.Len(t, fb.submitted, 1)
	assert.Equal(t, broker.OrderRequest{Symbol: "AAPL", Qty: 40, Side: broker.Buy}, fb.submitted[0])

	require.Len(t, rep.Entries, 1)
	e := rep.Entries[0]
	assert.Equal(t, int64(40), e.Qty)
	assert.Equal(t, "ord-1", e.OrderID)
	assert.True(t, decimal.RequireFromString("5.10").Equal(e.FillPrice))
	assert.Equal(t, 1, rep.Count(OutcomeFilled))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "AAPL,buy,40,190,2024-05-10,5,ord-1,5.1,2024-05-01T13:30:00Z", lines[1])

	// one poll sleep, no pause after the last candidate
	assert.Equal(t, 1, rec.count(time.Second))
	assert.Equal(t, 0, rec.count(pause))
}

func TestExecuteSkipsUnaffordableAndMalformed(t *testing.T) {
	t.Parallel()

	fb := newFakeBroker()
	store := &memStore{}
	rec := &sleepRecorder{}
	m := metrics.New()

	o := newTestOrchestrator(fb, store, rec)
	o.Metrics = m
	rep, err := o.Execute(context.Background(), []signals.Candidate{
		candidate("EXPN", "BUY", "250"),
		candidate("ZERO", "BUY", "0"),
	})
	require.NoError(t, err)

	assert.Empty(t, fb.submitted)
	assert.Empty(t, rep.Entries)
	assert.Empty(t, store.appends)
	require.Len(t, rep.Results, 2)
	assert.Equal(t, OutcomeSkipped, rep.Results[0].Outcome)
	assert.ErrorIs(t, rep.Results[0].Err, ErrBelowOneUnit)
	assert.Equal(t, OutcomeMalformed, rep.Results[1].Outcome)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Orders.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Orders.WithLabelValues("malformed")))
	assert.Empty(t, rec.sleeps)
}

func TestExecuteTimeoutLogsNothing(t *testing.T) {
	t.Parallel()

	fb := newFakeBroker()
	store := &memStore{}
	rec := &sleepRecorder{}

	rep, err := newTestOrchestrator(fb, store, rec).Execute(context.Background(),
		[]signals.Candidate{candidate("AAPL", "BUY", "5")})
	require.NoError(t, err)

	assert.Empty(t, rep.Entries)
	assert.Empty(t, store.appends)
	require.Len(t, rep.Results, 1)
	assert.Equal(t, OutcomeTimeout, rep.Results[0].Outcome)
	assert.Equal(t, "ord-1", rep.Results[0].OrderID)
	assert.Equal(t, 15, fb.totalGets())
}

func TestExecuteContinuesAfterRejection(t *testing.T) {
	t.Parallel()

	fb := newFakeBroker()
	fb.submitErr["BAD"] = &broker.Error{Op: "submit order", Status: 422, Kind: broker.ErrRejected}
	fb.script["GOOD"] = []broker.Order{filledAt("2")}
	rec := &sleepRecorder{}

	rep, err := newTestOrchestrator(fb, &memStore{}, rec).Execute(context.Background(),
		[]signals.Candidate{candidate("BAD", "BUY", "5"), candidate("GOOD", "SELL", "5")})
	require.NoError(t, err)

	require.Len(t, rep.Results, 2)
	assert.Equal(t, OutcomeRejected, rep.Results[0].Outcome)
	assert.Equal(t, OutcomeFilled, rep.Results[1].Outcome)
	require.Len(t, rep.Entries, 1)
	assert.Equal(t, broker.Sell, rep.Entries[0].Side)
	// the broker answered the first submission, so the second is spaced
	assert.Equal(t, 1, rec.count(pause))
}

func TestExecutePausesAfterRateLimit(t *testing.T) {
	t.Parallel()

	fb := newFakeBroker()
	fb.submitErr["A"] = &broker.Error{Op: "submit order", Status: 429, Kind: broker.ErrTransient}
	fb.submitErr["B"] = &broker.Error{Op: "submit order", Status: 503, Kind: broker.ErrTransient}
	fb.script["C"] = []broker.Order{filledAt("1")}
	rec := &sleepRecorder{}

	rep, err := newTestOrchestrator(fb, &memStore{}, rec).Execute(context.Background(),
		[]signals.Candidate{candidate("A", "BUY", "1"), candidate("B", "BUY", "1"), candidate("C", "BUY", "1")})
	require.NoError(t, err)

	assert.Equal(t, OutcomeFailed, rep.Results[0].Outcome)
	assert.Equal(t, OutcomeFailed, rep.Results[1].Outcome)
	assert.Equal(t, OutcomeFilled, rep.Results[2].Outcome)
	assert.Equal(t, 2, rec.count(pause))
}

func TestExecuteNoPauseAfterUnreachedSubmission(t *testing.T) {
	t.Parallel()

	fb := newFakeBroker()
	fb.script["A"] = []broker.Order{filledAt("1")}
	rec := &sleepRecorder{}

	// a sized-out candidate between two submissions adds no extra pause
	rep, err := newTestOrchestrator(fb, &memStore{}, rec).Execute(context.Background(),
		[]signals.Candidate{candidate("X", "BUY", "500"), candidate("A", "BUY", "1")})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, rep.Results[0].Outcome)
	assert.Equal(t, 0, rec.count(pause))
}

func TestExecuteSlowBrokerReportsTimeout(t *testing.T) {
	t.Parallel()

	fb := newFakeBroker()
	fb.latency = 5 * time.Millisecond
	store := &memStore{}

	o := NewOrchestrator(fb, &Poller{Gateway: fb, Interval: 10 * time.Millisecond, Timeout: 100 * time.Millisecond}, store)
	o.Sleep = (&sleepRecorder{}).Sleep

	rep, err := o.Execute(context.Background(), []signals.Candidate{candidate("AAPL", "BUY", "5")})
	require.NoError(t, err)
	require.Len(t, rep.Results, 1)
	assert.Equal(t, OutcomeTimeout, rep.Results[0].Outcome)
	assert.ErrorIs(t, rep.Results[0].Err, ErrFillTimeout)
	assert.Empty(t, store.appends)
	assert.Equal(t, 10, fb.totalGets())
}

func TestExecuteAbortsWhenBrokerUnreachableOnFirstCall(t *testing.T) {
	t.Parallel()

	for _, kind := range []error{broker.ErrTransport, broker.ErrUnauthorized} {
		fb := newFakeBroker()
		fb.submitErr["AAPL"] = &broker.Error{Op: "submit order", Kind: kind, Err: errors.New("no route")}
		store := &memStore{}

		rep, err := newTestOrchestrator(fb, store, &sleepRecorder{}).Execute(context.Background(),
			[]signals.Candidate{candidate("AAPL", "BUY", "5"), candidate("MSFT", "BUY", "5")})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrBrokerUnavailable)
		assert.Empty(t, rep.Entries)
		assert.Empty(t, store.appends)
		assert.Len(t, fb.submitted, 1)
	}
}

func TestExecuteLaterConnectivityErrorIsPerCandidate(t *testing.T) {
	t.Parallel()

	fb := newFakeBroker()
	fb.script["AAPL"] = []broker.Order{filledAt("5")}
	fb.submitErr["MSFT"] = &broker.Error{Op: "submit order", Kind: broker.ErrTransport}
	fb.script["NVDA"] = []broker.Order{filledAt("9")}

	rep, err := newTestOrchestrator(fb, &memStore{}, &sleepRecorder{}).Execute(context.Background(),
		[]signals.Candidate{candidate("AAPL", "BUY", "5"), candidate("MSFT", "BUY", "5"), candidate("NVDA", "BUY", "9")})
	require.NoError(t, err)

	assert.Equal(t, OutcomeFailed, rep.Results[1].Outcome)
	assert.Len(t, rep.Entries, 2)
}

func TestExecutePausesBetweenSubmissions(t *testing.T) {
	t.Parallel()

	fb := newFakeBroker()
	for _, s := range []string{"A", "B", "C"} {
		fb.script[s] = []broker.Order{filledAt("1")}
	}
	store := &memStore{}
	rec := &sleepRecorder{}

	rep, err := newTestOrchestrator(fb, store, rec).Execute(context.Background(),
		[]signals.Candidate{candidate("A", "BUY", "1"), candidate("B", "BUY", "1"), candidate("C", "BUY", "1")})
	require.NoError(t, err)

	assert.Equal(t, 2, rec.count(pause))
	assert.Len(t, rep.Entries, 3)
	// appended immediately, one call per fill
	require.Len(t, store.appends, 3)
	for _, a := range store.appends {
		assert.Len(t, a, 1)
	}
}

func TestExecuteEmpty(t *testing.T) {
	t.Parallel()

	fb := newFakeBroker()
	rep, err := newTestOrchestrator(fb, &memStore{}, &sleepRecorder{}).Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, rep.Results)
	assert.Empty(t, fb.submitted)
}

func TestExecuteStoreFailureStopsRun(t *testing.T) {
	t.Parallel()

	fb := newFakeBroker()
	fb.script["A"] = []broker.Order{filledAt("1")}
	fb.script["B"] = []broker.Order{filledAt("1")}
	store := &memStore{err: errors.New("disk full")}

	_, err := newTestOrchestrator(fb, store, &sleepRecorder{}).Execute(context.Background(),
		[]signals.Candidate{candidate("A", "BUY", "1"), candidate("B", "BUY", "1")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Len(t, fb.submitted, 1)
}

func TestExecuteSendsClientOrderID(t *testing.T) {
	t.Parallel()

	fb := newFakeBroker()
	fb.script["AAPL"] = []broker.Order{filledAt("5")}

	o := newTestOrchestrator(fb, nil, &sleepRecorder{})
	o.OrderID = func(sym string) string { return sym + "-01HX" }

	rep, err := o.Execute(context.Background(), []signals.Candidate{candidate("AAPL", "BUY", "5")})
	require.NoError(t, err)
	require.Len(t, fb.submitted, 1)
	assert.Equal(t, "AAPL-01HX", fb.submitted[0].ClientOrderID)
	assert.Len(t, rep.Entries, 1)
}

func TestExecuteStopsOnCancellation(t *testing.T) {
	t.Parallel()

	fb := newFakeBroker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestOrchestrator(fb, &memStore{}, &sleepRecorder{}).Execute(ctx,
		[]signals.Candidate{candidate("AAPL", "BUY", "5")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fb.submitted)
}
