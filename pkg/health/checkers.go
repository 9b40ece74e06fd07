package health

import (
	"context"
	"time"

	"github.com/gamakdragons/wheretruck/pkg/resilience"
)

const defaultProbeTimeout = 5 * time.Second

// Checkable is a dependency that can report its own health.
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// BreakerState is the read side of a circuit breaker.
type BreakerState interface {
	State() resilience.State
	Failures() int
}

type probe struct {
	name string
}

func (p probe) Name() string { return p.name }

func (p probe) result(status Status, message string) CheckResult {
	return CheckResult{Name: p.name, Status: status, Message: message, Timestamp: time.Now()}
}

// AdapterChecker is unhealthy while the adapter's HealthCheck fails or times out.
type AdapterChecker struct {
	probe
	adapter Checkable
	timeout time.Duration
}

// NewAdapterChecker wraps adapter. A zero timeout means five seconds.
func NewAdapterChecker(name string, adapter Checkable, timeout time.Duration) *AdapterChecker {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &AdapterChecker{probe: probe{name: name}, adapter: adapter, timeout: timeout}
}

func (c *AdapterChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := c.adapter.HealthCheck(ctx)
	res := c.result(StatusHealthy, "OK")
	if err != nil {
		res = c.result(StatusUnhealthy, "")
		res.Error = err.Error()
	}
	res.Duration = time.Since(start)
	return res
}

// BreakerChecker is degraded while the breaker is open or half-open.
type BreakerChecker struct {
	probe
	breaker BreakerState
}

func NewBreakerChecker(name string, breaker BreakerState) *BreakerChecker {
	return &BreakerChecker{probe: probe{name: name}, breaker: breaker}
}

func (c *BreakerChecker) Check(context.Context) CheckResult {
	state := c.breaker.State()
	status := StatusHealthy
	if state != resilience.StateClosed {
		status = StatusDegraded
	}
	res := c.result(status, state.String())
	res.Metadata = map[string]interface{}{
		"state":    state.String(),
		"failures": c.breaker.Failures(),
	}
	return res
}

// PingChecker is always healthy. It backs the liveness probe.
type PingChecker struct {
	probe
}

func NewPingChecker(name string) *PingChecker {
	return &PingChecker{probe: probe{name: name}}
}

func (c *PingChecker) Check(context.Context) CheckResult {
	return c.result(StatusHealthy, "alive")
}
