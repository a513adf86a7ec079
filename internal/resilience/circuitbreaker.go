// Package resilience provides the caller-owned plumbing around price fetching
// and the market context of a refresh cycle: market health evaluation,
// exchange hours, per-ticker rate limiting, TTL caching, retry policy and a
// circuit breaker for the data source.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState string

const (
	CircuitClosed   CircuitState = "CLOSED"    // calls pass through
	CircuitOpen     CircuitState = "OPEN"      // calls fail fast
	CircuitHalfOpen CircuitState = "HALF_OPEN" // one trial call allowed
)

// CircuitBreakerConfig holds circuit breaker configuration.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int
	// SuccessThreshold is the number of successful trial calls that closes it again.
	SuccessThreshold int
	// Timeout is how long the circuit stays open before a trial call is allowed.
	Timeout time.Duration
}

// DefaultCircuitBreakerConfig opens after five straight failures and tries
// again after thirty seconds.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 1,
		Timeout:          30 * time.Second,
	}
}

// ErrCircuitOpen is returned without calling the source while the circuit is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker guards a price source so that an outage costs one failed
// call per ticker instead of a full retry schedule. While half-open only a
// single trial call runs; concurrent callers are rejected until it finishes.
type CircuitBreaker struct {
	name     string
	config   CircuitBreakerConfig
	clock    Clock
	onChange func(name string, from, to CircuitState)

	mu        sync.Mutex
	state     CircuitState
	failures  int // consecutive, while closed
	successes int // trial calls, while half-open
	inTrial   bool
	openedAt  time.Time
	stats     CircuitBreakerStats
}

// CircuitBreakerStats are cumulative counters for status display.
type CircuitBreakerStats struct {
	Name          string
	State         CircuitState
	TotalRequests int64
	TotalFailures int64
	TotalRejected int64
	// RetryAt is when an open circuit admits its next trial call.
	RetryAt time.Time
}

// FailureRate returns failed calls as a percentage of all requests.
func (s CircuitBreakerStats) FailureRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.TotalFailures) / float64(s.TotalRequests) * 100
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(name string, config CircuitBreakerConfig, clock Clock) *CircuitBreaker {
	def := DefaultCircuitBreakerConfig()
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = def.FailureThreshold
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = def.SuccessThreshold
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if clock == nil {
		clock = SystemClock
	}
	return &CircuitBreaker{
		name:   name,
		config: config,
		clock:  clock,
		state:  CircuitClosed,
	}
}

// OnStateChange registers fn to be called after every transition. It runs
// outside the breaker's lock.
func (cb *CircuitBreaker) OnStateChange(fn func(name string, from, to CircuitState)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onChange = fn
}

// Execute runs fn unless the circuit is open. Context cancellation is the
// caller giving up, not the source failing, and leaves the state unchanged.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	trial, err := cb.admit()
	if err != nil {
		return err
	}

	err = fn(ctx)
	cancelled := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	cb.record(trial, err == nil, cancelled)
	return err
}

// admit decides whether a call may proceed and whether it is the half-open trial call.
func (cb *CircuitBreaker) admit() (trial bool, err error) {
	cb.mu.Lock()
	cb.stats.TotalRequests++

	var from CircuitState
	switch cb.state {
	case CircuitOpen:
		if cb.clock.Now().Before(cb.openedAt.Add(cb.config.Timeout)) {
			cb.stats.TotalRejected++
			cb.mu.Unlock()
			return false, ErrCircuitOpen
		}
		from = cb.setState(CircuitHalfOpen)
		fallthrough
	case CircuitHalfOpen:
		if cb.inTrial {
			cb.stats.TotalRejected++
			cb.mu.Unlock()
			cb.notify(from, CircuitHalfOpen)
			return false, ErrCircuitOpen
		}
		cb.inTrial = true
		cb.mu.Unlock()
		cb.notify(from, CircuitHalfOpen)
		return true, nil
	}
	cb.mu.Unlock()
	return false, nil
}

func (cb *CircuitBreaker) record(trial, ok, cancelled bool) {
	cb.mu.Lock()
	if trial {
		cb.inTrial = false
	}

	var from CircuitState
	to := cb.state
	switch {
	case cancelled:
	case ok && cb.state == CircuitHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			from, to = cb.setState(CircuitClosed), CircuitClosed
		}
	case ok:
		cb.failures = 0
	default:
		cb.stats.TotalFailures++
		cb.failures++
		if cb.state == CircuitHalfOpen || cb.failures >= cb.config.FailureThreshold {
			if cb.state != CircuitOpen {
				from, to = cb.setState(CircuitOpen), CircuitOpen
			}
			cb.openedAt = cb.clock.Now()
		}
	}
	cb.mu.Unlock()
	cb.notify(from, to)
}

// setState moves to state, resetting the counters, and returns the old state.
// It must be called with mu held.
func (cb *CircuitBreaker) setState(state CircuitState) CircuitState {
	from := cb.state
	cb.state = state
	cb.failures = 0
	cb.successes = 0
	return from
}

func (cb *CircuitBreaker) notify(from, to CircuitState) {
	if from == "" || from == to {
		return
	}
	cb.mu.Lock()
	fn := cb.onChange
	cb.mu.Unlock()
	if fn != nil {
		fn(cb.name, from, to)
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Name returns the circuit breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Stats returns a snapshot of the counters.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	s := cb.stats
	s.Name = cb.name
	s.State = cb.state
	if cb.state == CircuitOpen {
		s.RetryAt = cb.openedAt.Add(cb.config.Timeout)
	}
	return s
}

// Reset closes the circuit.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	from := cb.setState(CircuitClosed)
	cb.inTrial = false
	cb.mu.Unlock()
	cb.notify(from, CircuitClosed)
}
