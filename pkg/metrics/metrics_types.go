package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Engine query metrics, labelled by operation
	// (chains, impact, matrix, critical_paths, cycles, relationship_types)
	QueriesTotal      *prometheus.CounterVec
	QueryDuration     *prometheus.HistogramVec
	QueryResultSize   *prometheus.HistogramVec
	SlowQueries       *prometheus.CounterVec
	QueryErrorsByKind *prometheus.CounterVec

	// Snapshot metrics
	SnapshotRebuildsTotal   *prometheus.CounterVec
	SnapshotRebuildDuration prometheus.Histogram
	SnapshotEntities        prometheus.Gauge
	SnapshotRelationships   prometheus.Gauge
	SnapshotSkipped         prometheus.Gauge
	SnapshotVersion         prometheus.Gauge
	SnapshotAgeSeconds      prometheus.Gauge
	InvalidationsTotal      *prometheus.CounterVec

	// Impact result cache
	ImpactCacheHits   prometheus.Counter
	ImpactCacheMisses prometheus.Counter

	// Change event bridge
	BridgeMessagesTotal *prometheus.CounterVec

	// Process
	BuildInfo        *prometheus.GaugeVec
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry  *prometheus.Registry
	startedAt time.Time
	mu        sync.RWMutex
}
