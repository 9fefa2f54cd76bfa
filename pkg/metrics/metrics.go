package metrics

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SlowQueryThreshold marks queries counted in SlowQueries.
const SlowQueryThreshold = time.Second

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry:  prometheus.NewRegistry(),
		startedAt: time.Now(),
	}

	r.initServerMetrics()
	r.initEngineMetrics()
	r.initSnapshotMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordResponseSize records the number of body bytes written.
func (r *Registry) RecordResponseSize(method, path string, size float64) {
	r.HTTPResponseSizeBytes.WithLabelValues(method, path).Observe(size)
}

func (r *Registry) IncHTTPRequestsInFlight() { r.HTTPRequestsInFlight.Inc() }
func (r *Registry) DecHTTPRequestsInFlight() { r.HTTPRequestsInFlight.Dec() }

// RecordQuery records one engine query. kind is "ok" or the error kind.
func (r *Registry) RecordQuery(operation, kind string, duration time.Duration, resultSize int) {
	status := "success"
	if kind != "ok" {
		status = "error"
		r.QueryErrorsByKind.WithLabelValues(operation, kind).Inc()
	}
	r.QueriesTotal.WithLabelValues(operation, status).Inc()
	r.QueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if status == "success" {
		r.QueryResultSize.WithLabelValues(operation).Observe(float64(resultSize))
	}
	if duration > SlowQueryThreshold {
		r.SlowQueries.WithLabelValues(operation).Inc()
	}
}

// RecordSnapshotRebuild records a rebuild attempt and, on success, the new
// snapshot's shape.
func (r *Registry) RecordSnapshotRebuild(err error, duration time.Duration, entities, relationships, skipped int, version uint64) {
	if err != nil {
		r.SnapshotRebuildsTotal.WithLabelValues("error").Inc()
		return
	}
	r.SnapshotRebuildsTotal.WithLabelValues("success").Inc()
	r.SnapshotRebuildDuration.Observe(duration.Seconds())
	r.SnapshotEntities.Set(float64(entities))
	r.SnapshotRelationships.Set(float64(relationships))
	r.SnapshotSkipped.Set(float64(skipped))
	r.SnapshotVersion.Set(float64(version))
}

// SetSnapshotAge publishes how old the served snapshot is.
func (r *Registry) SetSnapshotAge(age time.Duration) {
	r.SnapshotAgeSeconds.Set(age.Seconds())
}

// RecordInvalidation counts a cache invalidation by source
// (event, ttl, manual).
func (r *Registry) RecordInvalidation(source string) {
	r.InvalidationsTotal.WithLabelValues(source).Inc()
}

// RecordImpactCache counts an impact cache lookup.
func (r *Registry) RecordImpactCache(hit bool) {
	if hit {
		r.ImpactCacheHits.Inc()
		return
	}
	r.ImpactCacheMisses.Inc()
}

// RecordBridgeMessage counts a message received from the change bridge.
// result is "forwarded", "ignored" or "malformed".
func (r *Registry) RecordBridgeMessage(result string) {
	r.BridgeMessagesTotal.WithLabelValues(result).Inc()
}

// SetBuildInfo publishes the running version and store backend.
func (r *Registry) SetBuildInfo(version, store string) {
	r.BuildInfo.Reset()
	r.BuildInfo.WithLabelValues(version, store).Set(1)
}

// UpdateSystemMetrics samples uptime, goroutines and memory.
func (r *Registry) UpdateSystemMetrics() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	r.UptimeSeconds.Set(time.Since(r.startedAt).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(m.Alloc))
	r.MemorySysBytes.Set(float64(m.Sys))
}
