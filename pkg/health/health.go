package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultCheckTimeout bounds each individual check.
const DefaultCheckTimeout = 2 * time.Second

// NewHealthChecker returns a checker with no checks registered; every probe
// reports healthy until checks are added.
func NewHealthChecker() *HealthChecker {
	hc := &HealthChecker{
		startedAt: time.Now(),
		timeout:   DefaultCheckTimeout,
	}
	for p := range hc.probes {
		hc.probes[p] = make(map[string]CheckFunc)
	}
	return hc
}

// SetCheckTimeout changes the per-check timeout.
func (hc *HealthChecker) SetCheckTimeout(d time.Duration) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	if d > 0 {
		hc.timeout = d
	}
}

// Register adds or replaces the check called name on probe p.
func (hc *HealthChecker) Register(p Probe, name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.probes[p][name] = check
}

func (hc *HealthChecker) RegisterCheck(name string, check CheckFunc) {
	hc.Register(ProbeHealth, name, check)
}

func (hc *HealthChecker) RegisterReadinessCheck(name string, check CheckFunc) {
	hc.Register(ProbeReady, name, check)
}

func (hc *HealthChecker) RegisterLivenessCheck(name string, check CheckFunc) {
	hc.Register(ProbeLive, name, check)
}

func (hc *HealthChecker) Check(ctx context.Context) Response {
	return hc.Run(ctx, ProbeHealth)
}

func (hc *HealthChecker) CheckReadiness(ctx context.Context) Response {
	return hc.Run(ctx, ProbeReady)
}

func (hc *HealthChecker) CheckLiveness(ctx context.Context) Response {
	return hc.Run(ctx, ProbeLive)
}

// Run executes the checks of probe p concurrently, each under its own
// timeout, and aggregates them worst status wins.
func (hc *HealthChecker) Run(ctx context.Context, p Probe) Response {
	hc.mu.RLock()
	checks := make(map[string]CheckFunc, len(hc.probes[p]))
	for name, fn := range hc.probes[p] {
		checks[name] = fn
	}
	timeout := hc.timeout
	hc.mu.RUnlock()

	response := Response{
		Status:    StatusHealthy,
		Probe:     p.String(),
		Timestamp: time.Now(),
		Checks:    make(map[string]Check, len(checks)),
		Uptime:    time.Since(hc.startedAt).Seconds(),
	}

	var mu sync.Mutex
	var g errgroup.Group
	for name, fn := range checks {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			check := fn(checkCtx)
			check.Duration = time.Since(start)
			check.LastChecked = start
			if check.Name == "" {
				check.Name = name
			}

			mu.Lock()
			defer mu.Unlock()
			response.Checks[name] = check
			if check.Status.severity() > response.Status.severity() {
				response.Status = check.Status
			}
			return nil
		})
	}
	_ = g.Wait()

	return response
}
