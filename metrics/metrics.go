// Package metrics provides Prometheus metrics for identity decisions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the identity subsystem.
type Metrics struct {
	enabled bool

	// Route guard
	guardDecisionsTotal *prometheus.CounterVec

	// Org activation
	activationsTotal   *prometheus.CounterVec
	activationDuration prometheus.Histogram

	// Mobile gates
	gateDecisionsTotal *prometheus.CounterVec

	// Token cache
	tokenCacheHitsTotal   *prometheus.CounterVec
	tokenCacheMissesTotal *prometheus.CounterVec

	// Token source
	tokenFetchesTotal *prometheus.CounterVec
}

// New creates and registers the identity metrics.
// If enabled is false, returns a no-op Metrics instance.
func New(enabled bool) *Metrics {
	m := &Metrics{enabled: enabled}

	if !enabled {
		return m
	}

	m.guardDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_guard_decisions_total",
		Help: "Route guard decisions by kind",
	}, []string{"decision"})

	m.activationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_activations_total",
		Help: "Org activation flow outcomes",
	}, []string{"outcome"})

	m.activationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "identity_activation_duration_seconds",
		Help:    "Org activation flow duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	m.gateDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_gate_decisions_total",
		Help: "Mobile auth gate decisions by state",
	}, []string{"state"})

	m.tokenCacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_token_cache_hits_total",
		Help: "Token cache hits",
	}, []string{"store"})

	m.tokenCacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_token_cache_misses_total",
		Help: "Token cache misses, storage faults included",
	}, []string{"store"})

	m.tokenFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_token_fetches_total",
		Help: "Provider token fetches by template and outcome",
	}, []string{"template", "outcome"})

	return m
}

// RecordGuardDecision records one route-guard verdict.
func (m *Metrics) RecordGuardDecision(decision string) {
	if !m.enabled {
		return
	}
	m.guardDecisionsTotal.WithLabelValues(decision).Inc()
}

// RecordActivation records an activation flow outcome and its duration.
func (m *Metrics) RecordActivation(outcome string, durationSeconds float64) {
	if !m.enabled {
		return
	}
	m.activationsTotal.WithLabelValues(outcome).Inc()
	m.activationDuration.Observe(durationSeconds)
}

// RecordGateDecision records a mobile gate state emission.
func (m *Metrics) RecordGateDecision(state string) {
	if !m.enabled {
		return
	}
	m.gateDecisionsTotal.WithLabelValues(state).Inc()
}

// RecordTokenCacheHit records a token cache hit.
func (m *Metrics) RecordTokenCacheHit(store string) {
	if !m.enabled {
		return
	}
	m.tokenCacheHitsTotal.WithLabelValues(store).Inc()
}

// RecordTokenCacheMiss records a token cache miss. Absorbed storage
// failures count as misses.
func (m *Metrics) RecordTokenCacheMiss(store string) {
	if !m.enabled {
		return
	}
	m.tokenCacheMissesTotal.WithLabelValues(store).Inc()
}

// RecordTokenFetch records one provider token fetch.
func (m *Metrics) RecordTokenFetch(template, outcome string) {
	if !m.enabled {
		return
	}
	if template == "" {
		template = "default"
	}
	m.tokenFetchesTotal.WithLabelValues(template, outcome).Inc()
}
