package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPActiveConnections prometheus.Gauge

	// Engagement ledger metrics
	LedgerOperationsTotal   *prometheus.CounterVec
	LedgerConflictsTotal    *prometheus.CounterVec
	LedgerOperationDuration *prometheus.HistogramVec
	LedgerCounterDrift      *prometheus.GaugeVec

	// Idempotency replays served from the result store
	IdempotentReplaysTotal *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitExceededTotal *prometheus.CounterVec

	// WebSocket metrics
	WebSocketConnections prometheus.Gauge
	WebSocketEventsTotal *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the process-wide metrics, registering them on first use.
func Get() *Metrics {
	once.Do(func() {
		instance = newMetrics(prometheus.DefaultRegisterer)
	})
	return instance
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPActiveConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_active_requests",
				Help: "Number of in-flight HTTP requests",
			},
		),

		LedgerOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_operations_total",
				Help: "Engagement ledger operations by outcome",
			},
			[]string{"op", "outcome"},
		),
		LedgerConflictsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_conflicts_total",
				Help: "Ledger transactions aborted by a concurrent writer",
			},
			[]string{"op"},
		),
		LedgerOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_operation_duration_seconds",
				Help:    "Ledger operation latency including conflict retries",
				Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"op"},
		),
		LedgerCounterDrift: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ledger_counter_drift_rows",
				Help: "Rows whose stored counter disagreed with its edges at the last reconcile",
			},
			[]string{"counter"},
		),

		IdempotentReplaysTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idempotent_replays_total",
				Help: "Requests answered from a stored idempotent result",
			},
			[]string{"op"},
		),

		RateLimitExceededTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limit_exceeded_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"scope"},
		),

		WebSocketConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "websocket_connections",
				Help: "Open websocket connections",
			},
		),
		WebSocketEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "websocket_events_total",
				Help: "Events pushed to websocket clients",
			},
			[]string{"type"},
		),
	}
}
