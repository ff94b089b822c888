package interceptor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mark3labs/swagger2client/pkg/transport"
)

// ErrRateLimited rejects a call locally when the window budget is spent and
// the policy is Reject.
var ErrRateLimited = errors.New("interceptor: rate limit exceeded")

// LimitPolicy decides what happens to a request over the window bound.
type LimitPolicy int

const (
	// Reject fails the call immediately without reaching the transport.
	Reject LimitPolicy = iota
	// Delay blocks until the window rolls over, honoring ctx cancellation.
	Delay
)

// RateLimit bounds the request count within a fixed time window. The window
// counter is shared by concurrent calls and guarded by a mutex; the lock is
// released before any sleep.
type RateLimit struct {
	maxRequests int
	window      time.Duration
	policy      LimitPolicy

	mu          sync.Mutex
	windowStart time.Time
	count       int
}

// NewRateLimit allows maxRequests per window.
func NewRateLimit(maxRequests int, window time.Duration, policy LimitPolicy) *RateLimit {
	if maxRequests <= 0 {
		maxRequests = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &RateLimit{maxRequests: maxRequests, window: window, policy: policy}
}

// ReplaySafe: every retry attempt consumes budget like a fresh request.
func (l *RateLimit) ReplaySafe() bool { return true }

// OnRequest consumes one slot of the current window, rejecting or delaying
// per policy when the window is full.
func (l *RateLimit) OnRequest(ctx context.Context, _ *transport.Request) error {
	for {
		wait, ok := l.tryAcquire()
		if ok {
			return nil
		}
		if l.policy == Reject {
			return ErrRateLimited
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return &transport.TimeoutError{Cause: ctx.Err()}
		case <-timer.C:
		}
	}
}

// tryAcquire reports (timeUntilRollover, acquired).
func (l *RateLimit) tryAcquire() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if l.windowStart.IsZero() || now.Sub(l.windowStart) >= l.window {
		l.windowStart = now
		l.count = 0
	}
	if l.count < l.maxRequests {
		l.count++
		return 0, true
	}
	return l.windowStart.Add(l.window).Sub(now), false
}
