package clients

import (
	"sync"
	"time"
)

// State is a circuit breaker state.
type State int

const (
	// StateClosed lets every request through.
	StateClosed State = iota

	// StateOpen rejects requests until the cool-down elapses.
	StateOpen

	// StateHalfOpen lets a limited number of probe requests through.
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
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures a CircuitBreaker.
type CircuitBreakerConfig struct {
	// MaxFailures consecutive failures open the circuit.
	MaxFailures int

	// Timeout is the cool-down before an open circuit starts probing.
	Timeout time.Duration

	// HalfOpenLimit caps in-flight probes and is also the number of
	// consecutive probe successes that close the circuit.
	HalfOpenLimit int
}

// CircuitBreaker guards a downstream that keeps failing.
//
//	closed    -> open       after MaxFailures consecutive failures
//	open      -> half-open  once Timeout has passed since the last failure
//	half-open -> closed     after HalfOpenLimit consecutive successes
//	half-open -> open       on any failure
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu          sync.Mutex
	state       State
	streak      int // consecutive failures (closed) or successes (half-open)
	probes      int // in-flight requests while half-open
	lastFailure time.Time
	listener    func(from, to State)

	now func() time.Time
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg, state: StateClosed, now: time.Now}
}

// OnStateChange registers fn to run after every transition. fn runs outside
// the breaker's lock.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	cb.listener = fn
	cb.mu.Unlock()
}

// Allow reports whether a request may proceed. A caller that gets true must
// report the outcome with RecordSuccess or RecordFailure.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()

	var allowed bool
	var notify func()

	switch cb.state {
	case StateClosed:
		allowed = true
	case StateOpen:
		if cb.now().Sub(cb.lastFailure) >= cb.cfg.Timeout {
			notify = cb.moveTo(StateHalfOpen)
			cb.probes = 1
			allowed = true
		}
	case StateHalfOpen:
		if cb.probes < cb.cfg.HalfOpenLimit {
			cb.probes++
			allowed = true
		}
	}

	cb.mu.Unlock()
	run(notify)

	return allowed
}

// RecordSuccess reports a request that reached the downstream.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()

	var notify func()

	switch cb.state {
	case StateClosed:
		cb.streak = 0
	case StateHalfOpen:
		cb.probes--
		cb.streak++
		if cb.streak >= cb.cfg.HalfOpenLimit {
			notify = cb.moveTo(StateClosed)
		}
	}

	cb.mu.Unlock()
	run(notify)
}

// RecordFailure reports a failed request.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()

	var notify func()

	cb.lastFailure = cb.now()

	switch cb.state {
	case StateClosed:
		cb.streak++
		if cb.streak >= cb.cfg.MaxFailures {
			notify = cb.moveTo(StateOpen)
		}
	case StateHalfOpen:
		cb.probes--
		notify = cb.moveTo(StateOpen)
	}

	cb.mu.Unlock()
	run(notify)
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.state
}

// moveTo switches state and resets the streak. It returns the listener call
// to make once the lock is released, or nil. Callers hold cb.mu.
func (cb *CircuitBreaker) moveTo(next State) func() {
	if cb.state == next {
		return nil
	}

	prev := cb.state
	cb.state = next
	cb.streak = 0

	if fn := cb.listener; fn != nil {
		return func() { fn(prev, next) }
	}

	return nil
}

func run(fn func()) {
	if fn != nil {
		fn()
	}
}
