package interceptor

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/mark3labs/swagger2client/pkg/transport"
)

// SendFunc issues one transport call.
type SendFunc func(ctx context.Context, req *transport.Request) (*transport.Response, error)

// Chain holds an ordered set of interceptors and drives the call loop,
// including retry re-issue when an interceptor raises a retry signal.
type Chain struct {
	interceptors []any
}

// NewChain builds a chain from the given interceptors in declaration order.
// Each element must implement at least one of RequestInterceptor,
// ResponseInterceptor, or ErrorInterceptor.
func NewChain(interceptors ...any) *Chain {
	return &Chain{interceptors: interceptors}
}

// Thread-safe jitter source shared by all chains.
var (
	jitterMu  sync.Mutex
	jitterRnd = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	jitterMu.Lock()
	defer jitterMu.Unlock()
	return time.Duration(jitterRnd.Int63n(int64(max)))
}

// Execute runs one logical call: request interceptors in order, the transport
// send, then response/error interceptors in reverse order. A retry signal
// raised anywhere in the chain re-issues the call after backoff, re-running
// only replay-safe request interceptors; once the signal's attempt budget is
// exhausted the last response or error is surfaced unmodified. The signal
// itself never escapes to the caller.
func (c *Chain) Execute(ctx context.Context, req *transport.Request, send SendFunc) (*transport.Response, error) {
	attempt := 1
	for {
		resp, err := c.attempt(ctx, req, send, attempt > 1)

		var sig *retrySignal
		if !errors.As(err, &sig) {
			return resp, err
		}

		// Attempt counter increments before the delay is computed.
		attempt++
		if attempt > sig.maxAttempts {
			return sig.lastResp, sig.lastErr
		}
		delay := sig.backoff(attempt - 1)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &transport.TimeoutError{Cause: ctx.Err()}
		case <-timer.C:
		}
	}
}

// attempt performs a single pass through the chain. On retry passes only
// replay-safe request interceptors run again; mutations the others made on
// the first pass are already present on req.
func (c *Chain) attempt(ctx context.Context, req *transport.Request, send SendFunc, isRetry bool) (*transport.Response, error) {
	for i, ic := range c.interceptors {
		ri, ok := ic.(RequestInterceptor)
		if !ok {
			continue
		}
		if isRetry && !replaySafe(ic) {
			continue
		}
		if err := ri.OnRequest(ctx, req); err != nil {
			// Unwind through the interceptors before the point of failure.
			return nil, c.unwindError(ctx, req, err, i-1)
		}
	}

	resp, err := send(ctx, req)
	if err != nil {
		return nil, c.unwindError(ctx, req, err, len(c.interceptors)-1)
	}
	return c.unwindResponse(ctx, req, resp)
}

// unwindResponse runs response interceptors in reverse declaration order. An
// error produced mid-unwind (including a retry signal) continues backward
// through the remaining error interceptors unless it is a retry signal, which
// the chain intercepts immediately.
func (c *Chain) unwindResponse(ctx context.Context, req *transport.Request, resp *transport.Response) (*transport.Response, error) {
	for i := len(c.interceptors) - 1; i >= 0; i-- {
		ri, ok := c.interceptors[i].(ResponseInterceptor)
		if !ok {
			continue
		}
		next, err := ri.OnResponse(ctx, req, resp)
		if err != nil {
			var sig *retrySignal
			if errors.As(err, &sig) {
				return nil, err
			}
			return nil, c.unwindError(ctx, req, err, i-1)
		}
		if next != nil {
			resp = next
		}
	}
	return resp, nil
}

// unwindError propagates err backward through the error interceptors at
// positions [0, from].
func (c *Chain) unwindError(ctx context.Context, req *transport.Request, err error, from int) error {
	for i := from; i >= 0; i-- {
		ei, ok := c.interceptors[i].(ErrorInterceptor)
		if !ok {
			continue
		}
		var sig *retrySignal
		if errors.As(err, &sig) {
			// Retry signals stop propagating; the chain handles them.
			return err
		}
		err = ei.OnError(ctx, req, err)
	}
	return err
}
