package interceptor

import (
	"context"
	"time"

	"github.com/mark3labs/swagger2client/pkg/transport"
)

// DefaultRetryableStatuses are retried unless overridden.
var DefaultRetryableStatuses = []int{500, 502, 503, 504}

const retryJitterMax = 200 * time.Millisecond

// RetryConfig controls the retry policy.
type RetryConfig struct {
	// MaxRetries is the number of re-issues beyond the first attempt.
	MaxRetries int
	// BaseDelay seeds the exponential backoff; doubled per attempt.
	BaseDelay time.Duration
	// MaxDelay caps the backoff before jitter is added.
	MaxDelay time.Duration
	// RetryableStatuses replaces DefaultRetryableStatuses when non-empty.
	RetryableStatuses []int
	// RetryableError reports whether a transport error should be retried.
	// Defaults to timeouts only.
	RetryableError func(error) bool
}

// DefaultRetryConfig returns the stock policy: 3 retries, 1s base delay
// capped at 30s, retrying 5xx gateway statuses and timeouts.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// Retry converts retryable responses and errors into retry signals that the
// chain intercepts and acts on. The per-call attempt counter lives in the
// chain, so a shared Retry instance is safe for concurrent calls.
type Retry struct {
	cfg RetryConfig
}

// NewRetry validates and normalizes the config.
func NewRetry(cfg RetryConfig) *Retry {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	return &Retry{cfg: cfg}
}

// ReplaySafe lets the policy re-evaluate on every attempt.
func (r *Retry) ReplaySafe() bool { return true }

func (r *Retry) retryableStatus(code int) bool {
	set := r.cfg.RetryableStatuses
	if len(set) == 0 {
		set = DefaultRetryableStatuses
	}
	for _, s := range set {
		if s == code {
			return true
		}
	}
	return false
}

func (r *Retry) retryableError(err error) bool {
	if r.cfg.RetryableError != nil {
		return r.cfg.RetryableError(err)
	}
	return transport.IsTimeout(err)
}

// OnResponse raises a retry signal for retryable statuses.
func (r *Retry) OnResponse(_ context.Context, _ *transport.Request, resp *transport.Response) (*transport.Response, error) {
	if resp != nil && r.retryableStatus(resp.StatusCode) {
		return nil, &retrySignal{policy: r, maxAttempts: r.cfg.MaxRetries + 1, lastResp: resp}
	}
	return resp, nil
}

// OnError raises a retry signal for retryable error kinds and re-raises
// everything else.
func (r *Retry) OnError(_ context.Context, _ *transport.Request, err error) error {
	if r.retryableError(err) {
		return &retrySignal{policy: r, maxAttempts: r.cfg.MaxRetries + 1, lastErr: err}
	}
	return err
}

// retrySignal is internal to the chain and must never escape to the caller.
// It carries the last observed outcome so the chain can surface it unmodified
// once the attempt budget is spent.
type retrySignal struct {
	policy      *Retry
	maxAttempts int
	lastResp    *transport.Response
	lastErr     error
}

func (s *retrySignal) Error() string { return "interceptor: retry requested" }

// backoff computes min(base * 2^(attempt-1), maxDelay) plus up to 200ms of
// jitter.
func (s *retrySignal) backoff(attempt int) time.Duration {
	cfg := s.policy.cfg
	delay := cfg.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= cfg.MaxDelay {
			delay = cfg.MaxDelay
			break
		}
	}
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	return delay + jitter(retryJitterMax)
}
