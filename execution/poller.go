package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/straddle/broker"
	"github.com/rustyeddy/straddle/internal/logger"
	"github.com/rustyeddy/straddle/metrics"
	"github.com/shopspring/decimal"
)

const (
	DefaultPollInterval = time.Second
	DefaultFillTimeout  = 15 * time.Second
	DefaultCheckTimeout = 10 * time.Second
)

// ErrFillTimeout means the broker never reported a fill price within the
// timeout. The order may still be live at the broker.
var ErrFillTimeout = errors.New("order not filled before timeout")

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Poller waits for a submitted order to report a fill price.
type Poller struct {
	Gateway  broker.Broker
	Interval time.Duration
	Timeout  time.Duration

	// CheckTimeout bounds a single status check.
	CheckTimeout time.Duration

	Sleep   SleepFunc        // nil sleeps on a timer
	Now     func() time.Time // nil uses time.Now
	Log     *slog.Logger
	Metrics *metrics.Metrics
}

func (p *Poller) interval() time.Duration {
	if p.Interval <= 0 {
		return DefaultPollInterval
	}
	return p.Interval
}

func (p *Poller) timeout() time.Duration {
	if p.Timeout <= 0 {
		return DefaultFillTimeout
	}
	return p.Timeout
}

func (p *Poller) checkTimeout() time.Duration {
	if p.CheckTimeout <= 0 {
		return DefaultCheckTimeout
	}
	return p.CheckTimeout
}

// Checks is the maximum number of status checks, ceil(timeout/interval).
func (p *Poller) Checks() int {
	iv, to := p.interval(), p.timeout()
	n := int((to + iv - 1) / iv)
	if n < 1 {
		n = 1
	}
	return n
}

// Wait polls the order until it reports a fill price. It returns
// ErrFillTimeout after Checks() checks without one, and returns any
// gateway error immediately. The check count is the bound: each check
// has its own CheckTimeout, and caller cancellation does not stop the
// wait. The overall deadline covers every sleep plus every check at its
// CheckTimeout; hitting it also ends in ErrFillTimeout.
func (p *Poller) Wait(ctx context.Context, orderID string) (decimal.Decimal, error) {
	log := logger.OrDefault(p.Log).With("order_id", orderID)

	n := p.Checks()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx),
		p.timeout()+time.Duration(n)*p.checkTimeout())
	defer cancel()

	now := p.Now
	if now == nil {
		now = time.Now
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	start := now()
	for i := 1; i <= n; i++ {
		cctx, ccancel := context.WithTimeout(ctx, p.checkTimeout())
		o, err := p.Gateway.GetOrder(cctx, orderID)
		ccancel()
		if err != nil {
			if ctx.Err() != nil {
				return decimal.Zero, fmt.Errorf("%w: deadline reached at check %d/%d: %v", ErrFillTimeout, i, n, err)
			}
			p.Metrics.ObserveGatewayError("get order", broker.Class(err))
			return decimal.Zero, fmt.Errorf("check %d/%d: %w", i, n, err)
		}
		if price, ok := o.FillPrice(); ok {
			p.Metrics.ObserveFillWait(now().Sub(start))
			log.Debug("fill confirmed", "check", i, "fill_price", price.String())
			return price, nil
		}
		log.Debug("awaiting fill", "check", i, "status", o.Status)

		if i == n {
			break
		}
		if err := sleep(ctx, p.interval()); err != nil {
			return decimal.Zero, fmt.Errorf("%w: %v", ErrFillTimeout, err)
		}
	}
	return decimal.Zero, fmt.Errorf("%w: %d checks over %s", ErrFillTimeout, n, p.timeout())
}

// Sleep waits on a timer, returning early with ctx's error.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
