// Package metrics exposes the desk's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application collectors behind a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	operationsCreated *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	loginAttempts     *prometheus.CounterVec
	wsClients         prometheus.Gauge
}

// New builds a registry with HTTP, lifecycle and session collectors plus the
// standard process and Go collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tradingdesk",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradingdesk",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"service", "method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tradingdesk",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"service", "method", "path"}),
		operationsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradingdesk",
			Subsystem: "operations",
			Name:      "created_total",
			Help:      "Total number of operations opened, by kind.",
		}, []string{"kind"}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradingdesk",
			Subsystem: "operations",
			Name:      "status_transitions_total",
			Help:      "Total number of lifecycle transitions.",
		}, []string{"from", "to"}),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradingdesk",
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Total number of login attempts.",
		}, []string{"outcome"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tradingdesk",
			Subsystem: "notify",
			Name:      "websocket_clients",
			Help:      "Currently connected websocket clients.",
		}),
	}

	m.registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.operationsCreated,
		m.statusTransitions,
		m.loginAttempts,
		m.wsClients,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler returns an HTTP handler exposing the registered collectors.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncrementInFlight marks a request as started.
func (m *Metrics) IncrementInFlight() { m.httpInFlight.Inc() }

// DecrementInFlight marks a request as finished.
func (m *Metrics) DecrementInFlight() { m.httpInFlight.Dec() }

// RecordHTTPRequest records one handled request.
func (m *Metrics) RecordHTTPRequest(service, method, path, status string, duration time.Duration) {
	m.httpRequests.WithLabelValues(service, method, path, status).Inc()
	m.httpDuration.WithLabelValues(service, method, path).Observe(duration.Seconds())
}

// RecordOperationCreated counts a newly opened operation.
func (m *Metrics) RecordOperationCreated(kind string) {
	m.operationsCreated.WithLabelValues(kind).Inc()
}

// RecordStatusTransition counts a lifecycle transition.
func (m *Metrics) RecordStatusTransition(from, to string) {
	m.statusTransitions.WithLabelValues(from, to).Inc()
}

// RecordLoginAttempt counts a login attempt. Outcome is "success" or
// "failure".
func (m *Metrics) RecordLoginAttempt(outcome string) {
	m.loginAttempts.WithLabelValues(outcome).Inc()
}

// SetWebsocketClients updates the connected-client gauge.
func (m *Metrics) SetWebsocketClients(n int) {
	m.wsClients.Set(float64(n))
}
