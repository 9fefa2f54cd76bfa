package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initEngineMetrics() {
	r.QueriesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "archgraph_queries_total",
			Help: "Total number of graph queries executed",
		},
		[]string{"operation", "status"},
	)

	r.QueryDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archgraph_query_duration_seconds",
			Help:    "Graph query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"operation"},
	)

	r.QueryResultSize = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archgraph_query_result_size",
			Help:    "Nodes, cells or paths returned per query",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000},
		},
		[]string{"operation"},
	)

	r.SlowQueries = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "archgraph_slow_queries_total",
			Help: "Total number of slow queries (>1s)",
		},
		[]string{"operation"},
	)

	r.QueryErrorsByKind = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "archgraph_query_errors_total",
			Help: "Failed queries by error kind",
		},
		[]string{"operation", "kind"},
	)
}
