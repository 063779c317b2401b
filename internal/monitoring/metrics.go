package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcome labels
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Metrics holds the backtest Prometheus collectors on a private registry.
// All methods are no-ops on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	barsProcessed  *prometheus.CounterVec
	intents        *prometheus.CounterVec
	ordersRejected *prometheus.CounterVec
	runs           *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	tradesClosed   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with Go runtime and
// process collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,

		barsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtest_bars_processed_total",
				Help: "Total number of bars consumed by strategies",
			},
			[]string{"strategy"},
		),
		intents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtest_intents_total",
				Help: "Total number of order intents emitted",
			},
			[]string{"strategy", "side"},
		),
		ordersRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtest_orders_rejected_total",
				Help: "Total number of intents rejected by the simulator",
			},
			[]string{"strategy"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtest_runs_total",
				Help: "Total number of backtest runs by outcome",
			},
			[]string{"strategy", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backtest_run_duration_seconds",
				Help:    "Backtest run duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"strategy"},
		),
		tradesClosed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtest_trades_closed_total",
				Help: "Total number of closed round trips",
			},
			[]string{"strategy", "reason"},
		),
	}

	reg.MustRegister(m.barsProcessed)
	reg.MustRegister(m.intents)
	reg.MustRegister(m.ordersRejected)
	reg.MustRegister(m.runs)
	reg.MustRegister(m.runDuration)
	reg.MustRegister(m.tradesClosed)

	return m
}

// Registry exposes the underlying registry for gathering in tests
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordBar counts one bar consumed by strategy
func (m *Metrics) RecordBar(strategy string) {
	if m == nil {
		return
	}
	m.barsProcessed.WithLabelValues(strategy).Inc()
}

// RecordIntent counts an emitted intent
func (m *Metrics) RecordIntent(strategy, side string) {
	if m == nil {
		return
	}
	m.intents.WithLabelValues(strategy, side).Inc()
}

// RecordRejection counts a rejected intent
func (m *Metrics) RecordRejection(strategy string) {
	if m == nil {
		return
	}
	m.ordersRejected.WithLabelValues(strategy).Inc()
}

// RecordTrade counts a closed round trip by exit reason
func (m *Metrics) RecordTrade(strategy, reason string) {
	if m == nil {
		return
	}
	m.tradesClosed.WithLabelValues(strategy, reason).Inc()
}

// RecordRun counts a finished run and observes its duration
func (m *Metrics) RecordRun(strategy string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusFailed
	}
	m.runs.WithLabelValues(strategy, status).Inc()
	m.runDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}
