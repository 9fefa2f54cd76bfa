package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSnapshotMetrics() {
	r.SnapshotRebuildsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "archgraph_snapshot_rebuilds_total",
			Help: "Graph index rebuilds",
		},
		[]string{"status"},
	)

	r.SnapshotRebuildDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "archgraph_snapshot_rebuild_duration_seconds",
			Help:    "Time to read both stores and build the index",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
		},
	)

	r.SnapshotEntities = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "archgraph_snapshot_entities",
			Help: "Entities in the current snapshot",
		},
	)

	r.SnapshotRelationships = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "archgraph_snapshot_relationships",
			Help: "Relationships in the current snapshot",
		},
	)

	r.SnapshotSkipped = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "archgraph_snapshot_skipped_relationships",
			Help: "Relationships dropped from the current snapshot (self-loops, dangling endpoints)",
		},
	)

	r.SnapshotVersion = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "archgraph_snapshot_version",
			Help: "Version of the current snapshot",
		},
	)

	r.SnapshotAgeSeconds = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "archgraph_snapshot_age_seconds",
			Help: "Age of the snapshot served by the last query",
		},
	)

	r.InvalidationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "archgraph_invalidations_total",
			Help: "Snapshot invalidations by source",
		},
		[]string{"source"},
	)

	r.ImpactCacheHits = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "archgraph_impact_cache_hits_total",
			Help: "Impact results served from cache",
		},
	)

	r.ImpactCacheMisses = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "archgraph_impact_cache_misses_total",
			Help: "Impact results computed",
		},
	)

	r.BridgeMessagesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "archgraph_bridge_messages_total",
			Help: "Change notifications received over the nanomsg bridge",
		},
		[]string{"result"},
	)
}
