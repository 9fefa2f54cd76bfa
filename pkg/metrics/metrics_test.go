package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var metric dto.Metric
	if err := g.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.GetGauge().GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	// Verify all metric groups are initialized
	if r.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal not initialized")
	}
	if r.QueriesTotal == nil {
		t.Error("QueriesTotal not initialized")
	}
	if r.SnapshotRebuildsTotal == nil {
		t.Error("SnapshotRebuildsTotal not initialized")
	}
	if r.UptimeSeconds == nil {
		t.Error("UptimeSeconds not initialized")
	}
	if r.registry == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	// Should return the same instance
	r1 := DefaultRegistry()
	r2 := DefaultRegistry()

	if r1 != r2 {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	r := NewRegistry()

	r.RecordHTTPRequest("GET", "/relationships/{id}/impact", "200", 100*time.Millisecond)
	r.RecordHTTPRequest("GET", "/relationships/{id}/impact", "200", 20*time.Millisecond)
	r.RecordHTTPRequest("GET", "/relationships/{id}/impact", "404", 5*time.Millisecond)

	ok := r.HTTPRequestsTotal.WithLabelValues("GET", "/relationships/{id}/impact", "200")
	if got := counterValue(t, ok); got != 2 {
		t.Errorf("200 counter = %v, want 2", got)
	}
	missing := r.HTTPRequestsTotal.WithLabelValues("GET", "/relationships/{id}/impact", "404")
	if got := counterValue(t, missing); got != 1 {
		t.Errorf("404 counter = %v, want 1", got)
	}
}

func TestRecordQuery(t *testing.T) {
	r := NewRegistry()

	r.RecordQuery("chains", "ok", 10*time.Millisecond, 12)
	r.RecordQuery("chains", "not_found", time.Millisecond, 0)
	r.RecordQuery("critical_paths", "timeout", 2*time.Second, 0)

	if got := counterValue(t, r.QueriesTotal.WithLabelValues("chains", "success")); got != 1 {
		t.Errorf("chains success = %v, want 1", got)
	}
	if got := counterValue(t, r.QueriesTotal.WithLabelValues("chains", "error")); got != 1 {
		t.Errorf("chains error = %v, want 1", got)
	}
	if got := counterValue(t, r.QueryErrorsByKind.WithLabelValues("chains", "not_found")); got != 1 {
		t.Errorf("chains not_found = %v, want 1", got)
	}
	if got := counterValue(t, r.SlowQueries.WithLabelValues("critical_paths")); got != 1 {
		t.Errorf("slow critical_paths = %v, want 1", got)
	}
	if got := counterValue(t, r.SlowQueries.WithLabelValues("chains")); got != 0 {
		t.Errorf("slow chains = %v, want 0", got)
	}
}

func TestRecordSnapshotRebuild(t *testing.T) {
	r := NewRegistry()

	r.RecordSnapshotRebuild(nil, 50*time.Millisecond, 120, 340, 2, 7)
	r.RecordSnapshotRebuild(errors.New("store down"), 0, 0, 0, 0, 0)

	if got := gaugeValue(t, r.SnapshotEntities); got != 120 {
		t.Errorf("entities = %v, want 120", got)
	}
	if got := gaugeValue(t, r.SnapshotRelationships); got != 340 {
		t.Errorf("relationships = %v, want 340", got)
	}
	if got := gaugeValue(t, r.SnapshotVersion); got != 7 {
		t.Errorf("version = %v, want 7 (failed rebuild must not reset it)", got)
	}
	if got := counterValue(t, r.SnapshotRebuildsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("error rebuilds = %v, want 1", got)
	}
}

func TestCacheAndInvalidationCounters(t *testing.T) {
	r := NewRegistry()

	r.RecordImpactCache(true)
	r.RecordImpactCache(true)
	r.RecordImpactCache(false)
	r.RecordInvalidation("event")
	r.RecordBridgeMessage("malformed")

	if got := counterValue(t, r.ImpactCacheHits); got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
	if got := counterValue(t, r.ImpactCacheMisses); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
	if got := counterValue(t, r.InvalidationsTotal.WithLabelValues("event")); got != 1 {
		t.Errorf("event invalidations = %v, want 1", got)
	}
	if got := counterValue(t, r.BridgeMessagesTotal.WithLabelValues("malformed")); got != 1 {
		t.Errorf("malformed = %v, want 1", got)
	}
}

func TestUpdateSystemMetrics(t *testing.T) {
	r := NewRegistry()
	r.UpdateSystemMetrics()

	if got := gaugeValue(t, r.GoRoutines); got < 1 {
		t.Errorf("goroutines = %v, want >= 1", got)
	}
	if got := gaugeValue(t, r.MemorySysBytes); got <= 0 {
		t.Errorf("memory sys = %v, want > 0", got)
	}
}

func TestSetBuildInfo(t *testing.T) {
	r := NewRegistry()
	r.SetBuildInfo("dev", "memory")
	r.SetBuildInfo("1.2.0", "postgres")

	if got := gaugeValue(t, r.BuildInfo.WithLabelValues("1.2.0", "postgres")); got != 1 {
		t.Errorf("build info = %v, want 1", got)
	}
	if n := seriesCount(t, r, "archgraph_build_info"); n != 1 {
		t.Errorf("build info series = %d, want 1 after reset", n)
	}
}

func seriesCount(t *testing.T, r *Registry, name string) int {
	t.Helper()
	families, err := r.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return len(f.GetMetric())
		}
	}
	return 0
}

func TestMetricNamesArePrefixed(t *testing.T) {
	r := NewRegistry()
	r.RecordQuery("impact", "ok", time.Millisecond, 1)
	r.UpdateSystemMetrics()

	families, err := r.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("no metric families gathered")
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "archgraph_") {
			t.Errorf("metric %q lacks archgraph_ prefix", mf.GetName())
		}
	}
}
