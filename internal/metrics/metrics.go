// Package metrics exposes Prometheus instrumentation for the dispatcher.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's Prometheus collectors. Each instance owns its
// registry so tests can create metrics without collector collisions.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	upstreamErrors  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates and registers the gateway collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Name:      "requests_total",
				Help:      "Total number of requests dispatched to backend services",
			},
			[]string{"service", "method", "code"},
		),
		upstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Name:      "upstream_errors_total",
				Help:      "Total number of failed calls to backend services",
			},
			[]string{"service", "reason"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gateway",
				Name:      "request_duration_seconds",
				Help:      "Backend round-trip duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service"},
		),
	}

	m.registry.MustRegister(m.requestsTotal, m.upstreamErrors, m.requestDuration)
	return m
}

// ObserveRequest records a completed dispatch to a backend
func (m *Metrics) ObserveRequest(service, method, code string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(service, method, code).Inc()
	m.requestDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// IncrementUpstreamError records a failed call to a backend
func (m *Metrics) IncrementUpstreamError(service, reason string) {
	m.upstreamErrors.WithLabelValues(service, reason).Inc()
}

// Handler returns the HTTP handler serving the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
