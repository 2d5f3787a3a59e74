// Package metrics exposes Prometheus counters for resolution and delivery.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes recorded for provider attempts.
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
)

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	providerAttempts *prometheus.CounterVec
	deliveries       *prometheus.CounterVec
	streamBytes      prometheus.Counter
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		providerAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vidrelay",
			Name:      "provider_attempts_total",
			Help:      "Catalog resolution attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vidrelay",
			Name:      "deliveries_total",
			Help:      "Deliveries by mode (redirect, buffered, streamed, failed).",
		}, []string{"mode"}),
		streamBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vidrelay",
			Name:      "stream_bytes_total",
			Help:      "Bytes relayed to clients by streamed deliveries.",
		}),
	}
	m.registry.MustRegister(m.providerAttempts, m.deliveries, m.streamBytes)
	return m
}

// ProviderAttempt counts one provider attempt. Safe on a nil receiver.
func (m *Metrics) ProviderAttempt(provider, outcome string) {
	if m == nil {
		return
	}
	m.providerAttempts.WithLabelValues(provider, outcome).Inc()
}

// Delivery counts one delivery by mode.
func (m *Metrics) Delivery(mode string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(mode).Inc()
}

// StreamBytes adds n relayed bytes.
func (m *Metrics) StreamBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.streamBytes.Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
