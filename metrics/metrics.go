// Package metrics holds the Prometheus counters for execution and exit
// runs. Runs are short-lived, so results are pushed to a Pushgateway
// instead of being scraped.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	Registry *prometheus.Registry

	Orders      *prometheus.CounterVec // labels: outcome
	Exits       *prometheus.CounterVec // labels: action
	GatewayErrs *prometheus.CounterVec // labels: op, kind
	FillWait    prometheus.Histogram
	LastRun     *prometheus.GaugeVec // labels: command
}

// New registers all metrics on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_orders_total",
			Help: "Candidates processed, by outcome",
		}, []string{"outcome"}),
		Exits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_exits_total",
			Help: "Positions evaluated, by action",
		}, []string{"action"}),
		GatewayErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_gateway_errors_total",
			Help: "Failed broker calls, by operation and error class",
		}, []string{"op", "kind"}),
		FillWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trader_fill_wait_seconds",
			Help:    "Time from submission to confirmed fill",
			Buckets: []float64{0.25, 0.5, 1, 2, 3, 5, 8, 12, 15, 20},
		}),
		LastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trader_last_run_timestamp_seconds",
			Help: "Unix time the last run of a command finished",
		}, []string{"command"}),
	}

	m.Registry.MustRegister(m.Orders, m.Exits, m.GatewayErrs, m.FillWait, m.LastRun)
	return m
}

func (m *Metrics) ObserveOrder(outcome string) {
	if m == nil {
		return
	}
	m.Orders.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveExit(action string) {
	if m == nil {
		return
	}
	m.Exits.WithLabelValues(action).Inc()
}

func (m *Metrics) ObserveGatewayError(op, kind string) {
	if m == nil {
		return
	}
	m.GatewayErrs.WithLabelValues(op, kind).Inc()
}

func (m *Metrics) ObserveFillWait(d time.Duration) {
	if m == nil {
		return
	}
	m.FillWait.Observe(d.Seconds())
}

func (m *Metrics) MarkRun(command string, at time.Time) {
	if m == nil {
		return
	}
	m.LastRun.WithLabelValues(command).Set(float64(at.Unix()))
}

// Push sends the registry to a Pushgateway, replacing the job's group.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if m == nil || url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(m.Registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
