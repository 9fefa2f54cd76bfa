package health

import (
	"context"
	"runtime"
	"time"

	"github.com/dd0wney/cluso-archgraph/pkg/graph"
)

// StoreCheck reports the entity and relationship stores as unhealthy when
// ping fails.
func StoreCheck(ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{Name: "store"}

		if err := ping(ctx); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		} else {
			check.Status = StatusHealthy
			check.Message = "Connected"
		}

		return check
	}
}

// SnapshotCheck reports on the cached graph snapshot. A missing or stale
// snapshot is healthy (the next query rebuilds it); skipped relationships
// degrade the check since they point at data quality problems upstream.
func SnapshotCheck(last func() (stats graph.Stats, exists, fresh bool)) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{
			Name:    "snapshot",
			Status:  StatusHealthy,
			Details: make(map[string]any),
		}

		stats, exists, fresh := last()
		check.Details["exists"] = exists
		if !exists {
			check.Message = "No snapshot built yet"
			return check
		}

		check.Details["version"] = stats.Version
		check.Details["entities"] = stats.Entities
		check.Details["relationships"] = stats.Relationships
		check.Details["skipped"] = stats.Skipped
		check.Details["age_seconds"] = time.Since(stats.BuiltAt).Seconds()
		check.Details["fresh"] = fresh

		switch {
		case stats.Skipped > 0:
			check.Status = StatusDegraded
			check.Message = "Snapshot skipped invalid relationships"
		case !fresh:
			check.Message = "Snapshot stale; rebuilt on next query"
		default:
			check.Message = "Snapshot current"
		}

		return check
	}
}

// MemoryCheck creates a health check for memory usage. A nil getUsage reads
// the Go runtime.
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	if getUsage == nil {
		getUsage = func() (uint64, uint64) {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			return m.Alloc, m.Sys
		}
	}
	return func(ctx context.Context) Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}

		alloc, sys := getUsage()

		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		usagePercent := 0.0
		if sys > 0 {
			usagePercent = float64(alloc) / float64(sys) * 100
		}

		if usagePercent > 90 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}

		return check
	}
}

// AliveCheck always reports healthy; it backs the liveness probe.
func AliveCheck() CheckFunc {
	return func(ctx context.Context) Check {
		return Check{Name: "alive", Status: StatusHealthy}
	}
}
