// Package metrics exposes matchcore's prometheus collectors: trade
// throughput, order rejections, and per-symbol book/queue depth
// gauges. Grounded on the application-metrics provider pattern in
// DimaJoyti-ai-agentic-crypto-browser/pkg/observability, but wired
// directly against github.com/prometheus/client_golang rather than the
// full OpenTelemetry SDK — matchcore's core has no request spans to
// trace, just counters and gauges a scraper can read.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every collector matchcore registers. Its methods must
// not be called on a nil *Metrics; the dispatcher and the participant
// registry accept a nil *Metrics and then skip recording.
type Metrics struct {
	Registry *prometheus.Registry

	TradesTotal    prometheus.Counter
	OrdersRejected *prometheus.CounterVec
	BookDepth      *prometheus.GaugeVec
	QueueDepth     *prometheus.GaugeVec
}

// New constructs a Metrics with its own registry and registers every
// collector against it.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		TradesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "matchcore",
			Name:      "trades_total",
			Help:      "Total number of trades executed across all symbols.",
		}),
		OrdersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matchcore",
			Name:      "orders_rejected_total",
			Help:      "Total number of order rejections at submission, or for insufficient balance at settlement, by reason.",
		}, []string{"reason"}),
		BookDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "matchcore",
			Name:      "book_depth",
			Help:      "Distinct resting price levels on one side of a symbol's book.",
		}, []string{"symbol", "side"}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "matchcore",
			Name:      "dispatcher_queue_depth",
			Help:      "Pending commands queued for a symbol's worker.",
		}, []string{"symbol"}),
	}
	reg.MustRegister(m.TradesTotal, m.OrdersRejected, m.BookDepth, m.QueueDepth)
	return m
}

// RecordTrade increments the trade counter when qty is nonzero.
func (m *Metrics) RecordTrade(qty uint64) {
	if qty == 0 {
		return
	}
	m.TradesTotal.Inc()
}

// RecordRejection increments the rejection counter for reason (e.g.
// "insufficient_balance", "invalid_price_or_size", "invalid_size").
func (m *Metrics) RecordRejection(reason string) {
	m.OrdersRejected.WithLabelValues(reason).Inc()
}

// SetBookDepth records how many distinct price levels currently rest on
// side of symbol's book.
func (m *Metrics) SetBookDepth(symbol, side string, depth int) {
	m.BookDepth.WithLabelValues(symbol, side).Set(float64(depth))
}

// SetQueueDepth records how many commands are currently queued for
// symbol's worker.
func (m *Metrics) SetQueueDepth(symbol string, depth int) {
	m.QueueDepth.WithLabelValues(symbol).Set(float64(depth))
}
