package clients

import (
	"sync"
	"time"
)

// State is the circuit breaker state.
type State int

const (
	// StateClosed lets requests through. Normal operation.
	StateClosed State = iota

	// StateOpen sheds every request. Entered after too many consecutive
	// failures, so a struggling provider is not hammered while it recovers.
	StateOpen

	// StateHalfOpen lets a bounded number of probe requests through to find
	// out whether the provider has recovered.
	StateHalfOpen
)

var stateNames = [...]string{
	StateClosed:   "closed",
	StateOpen:     "open",
	StateHalfOpen: "half-open",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}

	return stateNames[s]
}

// CircuitBreakerConfig tunes when the breaker trips and how it recovers.
type CircuitBreakerConfig struct {
	// MaxFailures is how many consecutive failures open the circuit.
	MaxFailures int

	// Timeout is how long an open circuit sheds requests before allowing
	// recovery probes.
	Timeout time.Duration

	// HalfOpenLimit caps concurrent probes in the half-open state and is
	// also the number of probe successes needed to close the circuit.
	HalfOpenLimit int
}

// CircuitBreaker guards an upstream behind the HTTP client. Consecutive
// failures open it; after Timeout it admits HalfOpenLimit probes, and either
// closes again (probes succeed) or reopens for another full timeout window
// (any probe fails).
type CircuitBreaker struct {
	mu             sync.RWMutex
	state          State
	failures       int // consecutive failures while closed
	probeSuccesses int // consecutive probe successes while half-open
	probesInFlight int
	lastFailure    time.Time
	cfg            CircuitBreakerConfig

	onStateChange func(from, to State)

	// now is swapped out in tests to drive the open-state timeout.
	now func() time.Time
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		state: StateClosed,
		cfg:   cfg,
		now:   time.Now,
	}
}

// OnStateChange registers fn to be called on every transition, typically to
// log or count them. fn runs on its own goroutine and must not assume it is
// called before the transition takes effect.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// Allow reports whether a request may proceed. Crossing the open-state
// timeout flips the breaker to half-open and admits the first probe in the
// same call.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true

	case StateOpen:
		if cb.now().Sub(cb.lastFailure) < cb.cfg.Timeout {
			return false
		}

		cb.transitionTo(StateHalfOpen)
		cb.probesInFlight = 1

		return true

	case StateHalfOpen:
		if cb.probesInFlight >= cb.cfg.HalfOpenLimit {
			return false
		}
		cb.probesInFlight++

		return true

	default:
		return false
	}
}

// RecordSuccess clears the failure streak, and while half-open counts toward
// the probe successes that close the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures = 0

	case StateHalfOpen:
		cb.probesInFlight--
		cb.probeSuccesses++

		if cb.probeSuccesses >= cb.cfg.HalfOpenLimit {
			cb.transitionTo(StateClosed)
		}
	}
}

// RecordFailure extends the failure streak. It opens the circuit once the
// streak reaches MaxFailures, and reopens it immediately on any half-open
// probe failure. Either way the timeout window restarts from this failure.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailure = cb.now()

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.cfg.MaxFailures {
			cb.transitionTo(StateOpen)
		}

	case StateHalfOpen:
		cb.probesInFlight--
		cb.transitionTo(StateOpen)
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return cb.state
}

// transitionTo moves the breaker to next and resets the streak counters.
// Callers hold the lock; the notification runs on its own goroutine so a
// slow callback cannot stall request admission.
func (cb *CircuitBreaker) transitionTo(next State) {
	if cb.state == next {
		return
	}

	prev := cb.state
	cb.state = next

	cb.failures = 0
	cb.probeSuccesses = 0
	cb.probesInFlight = 0

	if cb.onStateChange != nil {
		go cb.onStateChange(prev, next)
	}
}
