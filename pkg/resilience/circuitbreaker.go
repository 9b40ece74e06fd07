// Package resilience guards calls to remote dependencies.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// State is the position of a circuit breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrCircuitBreakerOpen is returned without calling the guarded function
// while the circuit is open or a half-open probe is already in flight.
var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

const (
	defaultMaxFailures = 5
	defaultCooldown    = 10 * time.Second
)

// Options configures a CircuitBreaker.
type Options struct {
	// MaxFailures consecutive failures open the circuit. Defaults to 5.
	MaxFailures int
	// Cooldown is how long the circuit stays open before one probe is let through. Defaults to 10s.
	Cooldown time.Duration
	// IsFailure filters which errors count. Nil counts every error.
	IsFailure func(error) bool
	// Now defaults to time.Now.
	Now func() time.Time
}

// CircuitBreaker fails fast while a dependency keeps failing.
type CircuitBreaker struct {
	opts Options

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker(opts Options) *CircuitBreaker {
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = defaultMaxFailures
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = defaultCooldown
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.IsFailure == nil {
		opts.IsFailure = func(error) bool { return true }
	}
	return &CircuitBreaker{opts: opts}
}

// Execute calls fn unless the circuit is open and returns fn's error as is.
// Errors that IsFailure rejects are treated as successes.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.acquire(); err != nil {
		return err
	}
	err := fn()
	cb.release(err != nil && cb.opts.IsFailure(err))
	return err
}

// State reports the current state. An open circuit whose cooldown has
// elapsed reports half-open.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.advance()
	return cb.state
}

// Failures is the current run of consecutive failures.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// advance moves an open circuit to half-open once the cooldown is over. mu must be held.
func (cb *CircuitBreaker) advance() {
	if cb.state == StateOpen && !cb.opts.Now().Before(cb.openedAt.Add(cb.opts.Cooldown)) {
		cb.state = StateHalfOpen
		cb.probing = false
	}
}

func (cb *CircuitBreaker) acquire() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.advance()
	switch cb.state {
	case StateOpen:
		return ErrCircuitBreakerOpen
	case StateHalfOpen:
		if cb.probing {
			return ErrCircuitBreakerOpen
		}
		cb.probing = true
	}
	return nil
}

func (cb *CircuitBreaker) release(failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !failed {
		cb.state, cb.failures, cb.probing = StateClosed, 0, false
		return
	}

	switch cb.state {
	case StateHalfOpen:
		cb.trip()
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.opts.MaxFailures {
			cb.trip()
		}
	}
}

func (cb *CircuitBreaker) trip() {
	cb.state = StateOpen
	cb.openedAt = cb.opts.Now()
	cb.probing = false
}
