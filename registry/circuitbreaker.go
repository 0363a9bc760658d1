package registry

import (
	"sync"
	"time"
)

// breakerState is the circuit breaker's current position in the
// closed -> open -> half-open state machine.
type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

// CircuitBreaker guards outbound registry-fetch calls: it opens after
// FailureThreshold failures within Window, stays open for ResetTimeout,
// then allows a single half-open trial call before deciding whether to
// close or reopen.
type CircuitBreaker struct {
	FailureThreshold int
	Window           time.Duration
	ResetTimeout     time.Duration

	mu          sync.Mutex
	state       breakerState
	failures    []time.Time
	openedAt    time.Time
	halfOpenTry bool
}

// NewCircuitBreaker returns a closed breaker that opens after 5
// consecutive failures within a 30s window, half-opens once to probe
// recovery after staying open 30s.
func NewCircuitBreaker() *CircuitBreaker {
	return &CircuitBreaker{
		FailureThreshold: 5,
		Window:           30 * time.Second,
		ResetTimeout:     30 * time.Second,
		state:            stateClosed,
	}
}

// openError is the type of ErrOpen.
type openError struct{}

func (openError) Error() string { return "circuit breaker open" }

// ErrOpen is the sentinel error Allow returns while the breaker is open.
var ErrOpen error = openError{}

// Allow reports whether a call may proceed right now, transitioning
// open -> half-open once ResetTimeout has elapsed.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateClosed:
		return nil
	case stateOpen:
		if time.Since(b.openedAt) >= b.ResetTimeout {
			b.state = stateHalfOpen
			b.halfOpenTry = true
			return nil
		}
		return ErrOpen
	case stateHalfOpen:
		if b.halfOpenTry {
			// A trial call is already in flight; fail fast rather than
			// let concurrent callers pile onto the still-unproven
			// dependency.
			return ErrOpen
		}
		b.halfOpenTry = true
		return nil
	}
	return nil
}

// RecordSuccess closes the breaker (from closed or half-open) and clears
// the failure window.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = stateClosed
	b.failures = nil
	b.halfOpenTry = false
}

// RecordFailure records a failed call, opening the breaker if the
// failure threshold within Window is reached, or immediately reopening
// it if the failure happened during a half-open trial.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateHalfOpen {
		b.open()
		return
	}

	now := time.Now()
	b.failures = append(b.failures, now)
	cutoff := now.Add(-b.Window)
	kept := b.failures[:0]
	for _, t := range b.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.failures = kept

	if len(b.failures) >= b.FailureThreshold {
		b.open()
	}
}

func (b *CircuitBreaker) open() {
	b.state = stateOpen
	b.openedAt = time.Now()
	b.failures = nil
	b.halfOpenTry = false
}
