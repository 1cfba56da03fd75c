package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authorization metrics
	AuthzDecisionsTotal *prometheus.CounterVec

	// Assignment lifecycle metrics
	LifecycleOperationsTotal *prometheus.CounterVec
	LifecycleDuration        *prometheus.HistogramVec
	AssignConflictsTotal     prometheus.Counter

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
	CacheErrorsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on registry
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chapters_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chapters_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chapters_authz_decisions_total",
				Help: "Authorization decisions by action, resolved role and outcome",
			},
			[]string{"action", "role", "allowed"},
		),
		LifecycleOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chapters_lifecycle_operations_total",
				Help: "Chapter admin lifecycle operations by outcome",
			},
			[]string{"operation", "status"},
		),
		LifecycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chapters_lifecycle_duration_seconds",
				Help:    "Chapter admin lifecycle operation duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"operation"},
		),
		AssignConflictsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chapters_assign_conflicts_total",
				Help: "Concurrent first-time assignments that lost the insert race and retried",
			},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chapters_cache_hits_total",
				Help: "Cache hits by key family",
			},
			[]string{"family"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chapters_cache_misses_total",
				Help: "Cache misses by key family",
			},
			[]string{"family"},
		),
		CacheErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chapters_cache_errors_total",
				Help: "Absorbed cache failures by key family and operation",
			},
			[]string{"family", "operation"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthzDecisionsTotal,
		m.LifecycleOperationsTotal,
		m.LifecycleDuration,
		m.AssignConflictsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheErrorsTotal,
	)

	return m
}

// RecordAuthz records one authorization decision
func (m *Metrics) RecordAuthz(action, role string, allowed bool) {
	if m == nil {
		return
	}
	m.AuthzDecisionsTotal.WithLabelValues(action, role, strconv.FormatBool(allowed)).Inc()
}

// RecordLifecycle records a lifecycle operation and its duration
func (m *Metrics) RecordLifecycle(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.LifecycleOperationsTotal.WithLabelValues(operation, status).Inc()
	m.LifecycleDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordAssignConflict counts a lost insert race
func (m *Metrics) RecordAssignConflict() {
	if m == nil {
		return
	}
	m.AssignConflictsTotal.Inc()
}

// RecordCacheHit counts a cache hit
func (m *Metrics) RecordCacheHit(family string) {
	if m == nil {
		return
	}
	m.CacheHitsTotal.WithLabelValues(family).Inc()
}

// RecordCacheMiss counts a cache miss
func (m *Metrics) RecordCacheMiss(family string) {
	if m == nil {
		return
	}
	m.CacheMissesTotal.WithLabelValues(family).Inc()
}

// RecordCacheError counts a cache failure that was absorbed
func (m *Metrics) RecordCacheError(family, operation string) {
	if m == nil {
		return
	}
	m.CacheErrorsTotal.WithLabelValues(family, operation).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape handler for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
