package interceptor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mark3labs/swagger2client/pkg/transport"
)

// ErrCircuitOpen rejects a call locally while the breaker is open.
var ErrCircuitOpen = errors.New("interceptor: circuit breaker is open")

// CircuitState is the breaker's lifecycle position.
type CircuitState int

const (
	// StateClosed passes all calls through.
	StateClosed CircuitState = iota
	// StateOpen fails fast until the reset timeout elapses.
	StateOpen
	// StateHalfOpen admits exactly one probe call.
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig controls the circuit breaker thresholds.
type BreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the circuit.
	FailureThreshold int
	// ResetTimeout is how long the circuit stays open before a probe is allowed.
	ResetTimeout time.Duration
	// FailureStatus reports whether a response status counts as a failure.
	// Defaults to status >= 500.
	FailureStatus func(code int) bool
}

// DefaultBreakerConfig opens after 5 consecutive failures and probes after 30s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 5, ResetTimeout: 30 * time.Second}
}

// CircuitBreaker is a failure-isolation state machine shared across all calls
// using the same instance. State transitions are serialized under a mutex;
// the lock is never held across the transport call itself, only around the
// admission check and the outcome recording.
type CircuitBreaker struct {
	cfg BreakerConfig

	mu             sync.Mutex
	state          CircuitState
	failureCount   int
	lastTransition time.Time
	probeInFlight  bool
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	return &CircuitBreaker{cfg: cfg, state: StateClosed}
}

// ReplaySafe: admission is re-checked on every retry attempt.
func (b *CircuitBreaker) ReplaySafe() bool { return true }

// State returns the current state for observation.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// OnRequest admits or rejects the call. While open, calls fail fast with
// ErrCircuitOpen until the reset timeout has elapsed; then exactly one probe
// is let through half-open.
func (b *CircuitBreaker) OnRequest(_ context.Context, _ *transport.Request) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Since(b.lastTransition) < b.cfg.ResetTimeout {
			return ErrCircuitOpen
		}
		b.state = StateHalfOpen
		b.lastTransition = time.Now()
		b.probeInFlight = true
		return nil
	case StateHalfOpen:
		if b.probeInFlight {
			return ErrCircuitOpen
		}
		b.probeInFlight = true
		return nil
	}
	return nil
}

func (b *CircuitBreaker) failureStatus(code int) bool {
	if b.cfg.FailureStatus != nil {
		return b.cfg.FailureStatus(code)
	}
	return code >= 500
}

// OnResponse records the outcome of the attempt.
func (b *CircuitBreaker) OnResponse(_ context.Context, _ *transport.Request, resp *transport.Response) (*transport.Response, error) {
	if resp != nil && b.failureStatus(resp.StatusCode) {
		b.recordFailure()
	} else {
		b.recordSuccess()
	}
	return resp, nil
}

// OnError records a transport failure and re-raises the error.
func (b *CircuitBreaker) OnError(_ context.Context, _ *transport.Request, err error) error {
	b.recordFailure()
	return err
}

func (b *CircuitBreaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateHalfOpen:
		// Successful probe closes the circuit and resets the counter.
		b.state = StateClosed
		b.failureCount = 0
		b.lastTransition = time.Now()
		b.probeInFlight = false
	case StateClosed:
		b.failureCount = 0
	}
}

func (b *CircuitBreaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateClosed:
		b.failureCount++
		if b.failureCount >= b.cfg.FailureThreshold {
			b.state = StateOpen
			b.lastTransition = time.Now()
		}
	case StateHalfOpen:
		// Failed probe re-opens with a fresh timeout.
		b.state = StateOpen
		b.lastTransition = time.Now()
		b.probeInFlight = false
	}
}
