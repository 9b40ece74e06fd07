// Package health aggregates dependency probes into liveness and readiness reports.
package health

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Status is the outcome of a probe.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// severity orders statuses so the aggregate is the worst one seen.
func (s Status) severity() int {
	switch s {
	case StatusUnhealthy:
		return 2
	case StatusDegraded:
		return 1
	default:
		return 0
	}
}

// ErrUnknownCheck is returned by CheckOne for an unregistered name.
var ErrUnknownCheck = errors.New("health check not found")

// CheckResult is the report of a single probe.
type CheckResult struct {
	Name      string                 `json:"name"`
	Status    Status                 `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Duration  time.Duration          `json:"duration"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Checker probes one dependency.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// AggregatedResult is the combined report of every registered probe.
type AggregatedResult struct {
	Status    Status        `json:"status"`
	Checks    []CheckResult `json:"checks"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
}

// IsHealthy reports whether no probe was degraded or unhealthy.
func (r AggregatedResult) IsHealthy() bool {
	return r.Status == StatusHealthy
}

// Registry holds the probes of the running service, kept sorted by name.
type Registry struct {
	mu       sync.RWMutex
	checkers []Checker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds checker, replacing one with the same name. Nil is ignored.
func (r *Registry) Register(checker Checker) {
	if checker == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	name := checker.Name()
	i := sort.Search(len(r.checkers), func(i int) bool { return r.checkers[i].Name() >= name })
	if i < len(r.checkers) && r.checkers[i].Name() == name {
		r.checkers[i] = checker
		return
	}
	r.checkers = append(r.checkers, nil)
	copy(r.checkers[i+1:], r.checkers[i:])
	r.checkers[i] = checker
}

// Check runs every probe concurrently and reports the worst status.
func (r *Registry) Check(ctx context.Context) AggregatedResult {
	checkers := r.registered()
	start := time.Now()

	results := make([]CheckResult, len(checkers))
	var wg sync.WaitGroup
	wg.Add(len(checkers))
	for i := range checkers {
		go func(i int) {
			defer wg.Done()
			results[i] = checkers[i].Check(ctx)
		}(i)
	}
	wg.Wait()

	agg := AggregatedResult{Status: StatusHealthy, Checks: results}
	for _, res := range results {
		if res.Status.severity() > agg.Status.severity() {
			agg.Status = res.Status
		}
	}
	agg.Timestamp = time.Now()
	agg.Duration = agg.Timestamp.Sub(start)
	return agg
}

// CheckOne runs the probe registered under name.
func (r *Registry) CheckOne(ctx context.Context, name string) (CheckResult, error) {
	for _, c := range r.registered() {
		if c.Name() == name {
			return c.Check(ctx), nil
		}
	}
	return CheckResult{}, fmt.Errorf("%w: %s", ErrUnknownCheck, name)
}

// List returns the registered probe names in order.
func (r *Registry) List() []string {
	checkers := r.registered()
	names := make([]string, len(checkers))
	for i, c := range checkers {
		names[i] = c.Name()
	}
	return names
}

func (r *Registry) registered() []Checker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Checker(nil), r.checkers...)
}
