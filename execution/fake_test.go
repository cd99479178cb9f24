package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/straddle/broker"
	"github.com/shopspring/decimal"
)

// fakeBroker scripts GetOrder responses per order id. The last scripted
// response repeats once the script runs out.
type fakeBroker struct {
	mu sync.Mutex

	submitErr map[string]error
	script    map[string][]broker.Order // keyed by symbol
	getErr    map[string]error          // keyed by symbol
	latency   time.Duration             // GetOrder round trip, honours ctx

	submitted []broker.OrderRequest
	gets      map[string]int // keyed by order id
	symbols   map[string]string
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		submitErr: map[string]error{},
		script:    map[string][]broker.Order{},
		getErr:    map[string]error{},
		gets:      map[string]int{},
		symbols:   map[string]string{},
	}
}

var _ broker.Broker = (*fakeBroker)(nil)

func (f *fakeBroker) SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.submitted = append(f.submitted, req)
	if err := f.submitErr[req.Symbol]; err != nil {
		return broker.Order{}, err
	}
	id := fmt.Sprintf("ord-%d", len(f.submitted))
	f.symbols[id] = req.Symbol
	return broker.Order{ID: id, Symbol: req.Symbol, Side: req.Side, Status: broker.StatusAccepted}, nil
}

func (f *fakeBroker) GetOrder(ctx context.Context, id string) (broker.Order, error) {
	if f.latency > 0 {
		t := time.NewTimer(f.latency)
		select {
		case <-ctx.Done():
			t.Stop()
			f.mu.Lock()
			f.gets[id]++
			f.mu.Unlock()
			return broker.Order{}, &broker.Error{Op: "get order", Kind: broker.ErrTransport, Err: ctx.Err()}
		case <-t.C:
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	sym := f.symbols[id]
	f.gets[id]++
	if err := f.getErr[sym]; err != nil {
		return broker.Order{}, err
	}

	s := f.script[sym]
	if len(s) == 0 {
		return broker.Order{ID: id, Symbol: sym, Status: broker.StatusNew}, nil
	}
	i := f.gets[id] - 1
	if i >= len(s) {
		i = len(s) - 1
	}
	o := s[i]
	o.ID = id
	return o, nil
}

func (f *fakeBroker) ListPositions(ctx context.Context) ([]broker.Position, error) {
	return nil, nil
}

func (f *fakeBroker) ListOrders(ctx context.Context, _ broker.OrderFilter) ([]broker.Order, error) {
	return nil, nil
}

func (f *fakeBroker) ClosePosition(ctx context.Context, symbol string) error {
	return nil
}

func (f *fakeBroker) totalGets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, v := range f.gets {
		n += v
	}
	return n
}

func pending() broker.Order {
	return broker.Order{Status: broker.StatusNew}
}

func filledAt(price string) broker.Order {
	return broker.Order{
		Status:         broker.StatusFilled,
		FilledAvgPrice: decimal.NewNullDecimal(decimal.RequireFromString(price)),
	}
}

// sleepRecorder records requested sleeps instead of blocking.
type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeps = append(s.sleeps, d)
	return nil
}

func (s *sleepRecorder) count(d time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.sleeps {
		if v == d {
			n++
		}
	}
	return n
}
