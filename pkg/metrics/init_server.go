package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Size buckets for JSON payloads: a single impact result is a few hundred
// bytes, a full 100x100 matrix is several hundred kilobytes.
var responseSizeBuckets = prometheus.ExponentialBuckets(256, 4, 7)

// initServerMetrics registers the HTTP surface and process gauges. Route
// labels are ServeMux patterns such as "GET /relationships/{id}/impact".
func (r *Registry) initServerMetrics() {
	f := promauto.With(r.registry)

	r.HTTPRequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Name: "archgraph_http_requests_total",
		Help: "HTTP requests served, by route and status code",
	}, []string{"method", "route", "status"})

	r.HTTPRequestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "archgraph_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method", "route", "status"})

	r.HTTPRequestsInFlight = f.NewGauge(prometheus.GaugeOpts{
		Name: "archgraph_http_requests_in_flight",
		Help: "HTTP requests currently being served",
	})

	r.HTTPResponseSizeBytes = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "archgraph_http_response_size_bytes",
		Help:    "Response body size by route",
		Buckets: responseSizeBuckets,
	}, []string{"method", "route"})

	r.BuildInfo = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "archgraph_build_info",
		Help: "Always 1; labels carry the running build and store backend",
	}, []string{"version", "store"})

	r.UptimeSeconds = f.NewGauge(prometheus.GaugeOpts{
		Name: "archgraph_uptime_seconds",
		Help: "Seconds since the registry was created",
	})
	r.GoRoutines = f.NewGauge(prometheus.GaugeOpts{
		Name: "archgraph_goroutines",
		Help: "Number of goroutines",
	})
	r.MemoryAllocBytes = f.NewGauge(prometheus.GaugeOpts{
		Name: "archgraph_memory_alloc_bytes",
		Help: "Heap bytes allocated; the memory store keeps the whole portfolio here",
	})
	r.MemorySysBytes = f.NewGauge(prometheus.GaugeOpts{
		Name: "archgraph_memory_sys_bytes",
		Help: "Bytes obtained from the OS",
	})
}
