package health

import (
	"context"
	"sync"
	"time"
)

// Status of a component or of the service as a whole.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// severity orders statuses so aggregation can keep the worst.
func (s Status) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	}
	return 2
}

// Probe selects which endpoint a check reports on.
type Probe int

const (
	// ProbeHealth feeds /health: full diagnostics, degraded still serves.
	ProbeHealth Probe = iota
	// ProbeReady feeds /health/ready: can this instance take queries now.
	ProbeReady
	// ProbeLive feeds /health/live: should the process be restarted.
	ProbeLive

	numProbes
)

func (p Probe) String() string {
	switch p {
	case ProbeHealth:
		return "health"
	case ProbeReady:
		return "ready"
	case ProbeLive:
		return "live"
	}
	return "unknown"
}

// Check is the result of one named check.
type Check struct {
	Name        string         `json:"name"`
	Status      Status         `json:"status"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	Duration    time.Duration  `json:"duration_ms"`
}

// CheckFunc performs one health check. ctx carries the per-check timeout.
type CheckFunc func(ctx context.Context) Check

// HealthChecker runs the registered checks for each probe.
type HealthChecker struct {
	probes    [numProbes]map[string]CheckFunc
	mu        sync.RWMutex
	startedAt time.Time
	timeout   time.Duration
}

// Response is the JSON body of every health endpoint.
type Response struct {
	Status    Status           `json:"status"`
	Probe     string           `json:"probe"`
	Timestamp time.Time        `json:"timestamp"`
	Checks    map[string]Check `json:"checks"`
	Uptime    float64          `json:"uptime_seconds"`
}
