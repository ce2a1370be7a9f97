// Package metrics provides Prometheus metrics for the caching layers and the
// availability finder. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docfs"

type Metrics struct {
	storeRequests    *prometheus.CounterVec
	compiledRequests *prometheus.CounterVec
	compilations     *prometheus.CounterVec
	resolutions      *prometheus.CounterVec
	branchSteps      prometheus.Counter
}

// New creates all collectors and registers them on reg.
// Passing nil creates unregistered collectors.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		storeRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "object_store_requests_total",
				Help:      "Object store operations by backend and result",
			},
			[]string{"backend", "result"},
		),
		compiledRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compiled_fs_requests_total",
				Help:      "Compiled file system lookups by category and result",
			},
			[]string{"category", "result"},
		),
		compilations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compiled_fs_compilations_total",
				Help:      "Compile function invocations by category",
			},
			[]string{"category"},
		),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "availability_resolutions_total",
				Help:      "Resolved API availabilities by kind",
			},
			[]string{"kind"},
		),
		branchSteps: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "availability_branch_steps_total",
				Help:      "Branches inspected while resolving availability",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.storeRequests,
			m.compiledRequests,
			m.compilations,
			m.resolutions,
			m.branchSteps,
		)
	}

	return m
}

// StoreHit records a cache hit on an object store backend.
func (m *Metrics) StoreHit(backend string) {
	if m == nil {
		return
	}
	m.storeRequests.WithLabelValues(backend, "hit").Inc()
}

// StoreMiss records a cache miss on an object store backend.
func (m *Metrics) StoreMiss(backend string) {
	if m == nil {
		return
	}
	m.storeRequests.WithLabelValues(backend, "miss").Inc()
}

// StoreSet records a write to an object store backend.
func (m *Metrics) StoreSet(backend string) {
	if m == nil {
		return
	}
	m.storeRequests.WithLabelValues(backend, "set").Inc()
}

// CompiledHit records a compiled file system lookup served from cache.
func (m *Metrics) CompiledHit(category string) {
	if m == nil {
		return
	}
	m.compiledRequests.WithLabelValues(category, "hit").Inc()
}

// CompiledMiss records a lookup that missed or found a stale entry.
func (m *Metrics) CompiledMiss(category string, stale bool) {
	if m == nil {
		return
	}
	result := "miss"
	if stale {
		result = "stale"
	}
	m.compiledRequests.WithLabelValues(category, result).Inc()
}

// Compiled records an invocation of a compile function.
func (m *Metrics) Compiled(category string) {
	if m == nil {
		return
	}
	m.compilations.WithLabelValues(category).Inc()
}

// Resolved records an availability result of the given kind.
func (m *Metrics) Resolved(kind string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(kind).Inc()
}

// BranchStep records one branch visited by the availability walk.
func (m *Metrics) BranchStep() {
	if m == nil {
		return
	}
	m.branchSteps.Inc()
}

// Handler exposes the collectors registered on gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
