package resilience

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
)

// HealthStatus represents the health status of a component.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "HEALTHY"
	HealthStatusDegraded  HealthStatus = "DEGRADED"
	HealthStatusUnhealthy HealthStatus = "UNHEALTHY"
)

// ComponentHealth represents the health of a single component.
type ComponentHealth struct {
	Name      string                 `json:"name"`
	Status    HealthStatus           `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Latency   time.Duration          `json:"latency"`
	CheckedAt time.Time              `json:"checked_at"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// HealthCheck probes one component.
type HealthCheck func(ctx context.Context) ComponentHealth

// SystemHealth is the aggregate of every registered check.
type SystemHealth struct {
	Status     HealthStatus      `json:"status"`
	Uptime     string            `json:"uptime"`
	Components []ComponentHealth `json:"components"`
	Breakers   []BreakerStats    `json:"breakers,omitempty"`
}

// HealthChecker runs registered checks on demand.
type HealthChecker struct {
	mu       sync.RWMutex
	checks   map[string]HealthCheck
	started  time.Time
	timeout  time.Duration
	breakers *Registry
}

// NewHealthChecker creates a checker. breakers may be nil.
func NewHealthChecker(timeout time.Duration, breakers *Registry) *HealthChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthChecker{
		checks:   make(map[string]HealthCheck),
		started:  time.Now(),
		timeout:  timeout,
		breakers: breakers,
	}
}

// Register adds a named check.
func (h *HealthChecker) Register(name string, check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Run executes all checks in parallel.
func (h *HealthChecker) Run(ctx context.Context) SystemHealth {
	h.mu.RLock()
	checks := make(map[string]HealthCheck, len(h.checks))
	for k, v := range h.checks {
		checks[k] = v
	}
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var mu sync.Mutex
	results := []ComponentHealth{goroutineHealth()}

	p := pool.New().WithMaxGoroutines(4)
	for name, check := range checks {
		name, check := name, check
		p.Go(func() {
			res := runCheck(ctx, name, check)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		})
	}
	p.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	overall := HealthStatusHealthy
	for _, r := range results {
		switch r.Status {
		case HealthStatusUnhealthy:
			overall = HealthStatusUnhealthy
		case HealthStatusDegraded:
			if overall == HealthStatusHealthy {
				overall = HealthStatusDegraded
			}
		}
	}

	sh := SystemHealth{
		Status:     overall,
		Uptime:     time.Since(h.started).Round(time.Second).String(),
		Components: results,
	}
	if h.breakers != nil {
		sh.Breakers = h.breakers.AllStats()
	}
	return sh
}

func runCheck(ctx context.Context, name string, check HealthCheck) (res ComponentHealth) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = ComponentHealth{
				Status:  HealthStatusUnhealthy,
				Message: fmt.Sprintf("panic: %v", r),
			}
		}
		res.Name = name
		res.CheckedAt = time.Now()
		res.Latency = time.Since(start)
	}()
	return check(ctx)
}

func goroutineHealth() ComponentHealth {
	n := runtime.NumGoroutine()
	return ComponentHealth{
		Name:      "goroutines",
		Status:    HealthStatusHealthy,
		CheckedAt: time.Now(),
		Details:   map[string]interface{}{"count": n},
	}
}

// DatabaseHealthCheck wraps a ping function.
func DatabaseHealthCheck(ping func(ctx context.Context) error) HealthCheck {
	return func(ctx context.Context) ComponentHealth {
		if err := ping(ctx); err != nil {
			return ComponentHealth{Status: HealthStatusUnhealthy, Message: err.Error()}
		}
		return ComponentHealth{Status: HealthStatusHealthy}
	}
}

// OptionalHealthCheck reports a failing dependency the pipeline can run
// without as degraded rather than unhealthy.
func OptionalHealthCheck(probe func(ctx context.Context) (string, error)) HealthCheck {
	return func(ctx context.Context) ComponentHealth {
		msg, err := probe(ctx)
		if err != nil {
			return ComponentHealth{Status: HealthStatusDegraded, Message: err.Error()}
		}
		return ComponentHealth{Status: HealthStatusHealthy, Message: msg}
	}
}
