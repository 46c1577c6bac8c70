// Package circuit provides a small circuit breaker used around ledger reads.
package circuit

import "sync"

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the endpoint is healthy and calls flow normally.
	StateClosed State = iota
	// StateOpen means the endpoint has tripped and callers should re-resolve.
	StateOpen
)

// Breaker tracks consecutive failures for a single ledger endpoint.
// When closed, calls flow normally. After failureThreshold consecutive
// failures the circuit opens; a single success while open closes it again,
// since a fresh endpoint is re-probed before reuse anyway.
type Breaker struct {
	mu               sync.Mutex
	state            State
	name             string
	failures         int
	failureThreshold int
}

// Option configures a Breaker instance.
type Option func(*Breaker)

// WithFailureThreshold sets the number of consecutive failures to open the
// circuit. Default is 3.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// New creates a circuit breaker with the given name and options.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		state:            StateClosed,
		failureThreshold: 3,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Name returns the circuit breaker's name for logging/metrics.
func (b *Breaker) Name() string {
	return b.name
}

// IsOpen returns true if the circuit is open (tripped).
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == StateOpen
}

// RecordFailure records a failed call. It returns true when this failure
// tripped the circuit open, so the caller can log the transition once.
func (b *Breaker) RecordFailure() (opened bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.state == StateOpen {
		return false
	}
	if b.failures >= b.failureThreshold {
		b.state = StateOpen
		return true
	}
	return false
}

// RecordSuccess records a successful call and closes the circuit.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.state = StateClosed
}

// Reset resets the circuit breaker to closed state with zero counts.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
}
