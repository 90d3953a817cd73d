package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the backend.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Terminal session metrics
	SessionsActive  prometheus.Gauge
	SessionsTotal   prometheus.Counter
	SessionBytes    prometheus.Counter
	SessionsReaped  prometheus.Counter
	SubscriberDrops prometheus.Counter

	// One-off execution metrics
	ExecTotal    *prometheus.CounterVec
	ExecDuration prometheus.Histogram

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// Registry backs the /metrics endpoint.
	Registry *prometheus.Registry
}

// NewMetrics creates a metrics collector registered on its own registry,
// so tests can construct collectors without duplicate-registration
// panics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := newMetrics(reg)
	m.Registry = reg
	return m
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_terminal_sessions_active",
				Help: "Number of live terminal sessions",
			},
		),
		SessionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_terminal_sessions_total",
				Help: "Total number of terminal sessions created",
			},
		),
		SessionBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_terminal_output_bytes_total",
				Help: "Total bytes of terminal output read from PTYs",
			},
		),
		SessionsReaped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_terminal_sessions_reaped_total",
				Help: "Total number of exited sessions reaped",
			},
		),
		SubscriberDrops: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_terminal_subscriber_drops_total",
				Help: "Subscribers detached for falling behind",
			},
		),
		ExecTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_exec_commands_total",
				Help: "One-off command executions by outcome",
			},
			[]string{"outcome"},
		),
		ExecDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "backend_exec_duration_seconds",
				Help:    "One-off command duration in seconds",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
			},
		),
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_ws_connections",
				Help: "Active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_ws_messages_total",
				Help: "WebSocket messages by direction and type",
			},
			[]string{"direction", "type"},
		),
	}
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// SessionCreated records a new terminal session.
func (m *Metrics) SessionCreated() {
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

// SessionEnded records a session reaching a terminal state.
func (m *Metrics) SessionEnded() {
	m.SessionsActive.Dec()
}

// RecordExec records a one-off command outcome.
func (m *Metrics) RecordExec(outcome string, duration time.Duration) {
	m.ExecTotal.WithLabelValues(outcome).Inc()
	m.ExecDuration.Observe(duration.Seconds())
}

// RecordWSMessage records one WebSocket message.
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}
