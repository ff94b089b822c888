// Package interceptor composes ordered request/response middleware around a
// transport adapter. Request interceptors run in declaration order before the
// call; response and error interceptors run in reverse declaration order
// afterwards. Built-in interceptors cover logging, metrics, rate limiting,
// retry with backoff, circuit breaking, transformation, and idempotency keys.
package interceptor

import (
	"context"

	"github.com/mark3labs/swagger2client/pkg/transport"
)

// RequestInterceptor may transform or reject an outgoing request.
type RequestInterceptor interface {
	OnRequest(ctx context.Context, req *transport.Request) error
}

// ResponseInterceptor may transform a response or convert it into a retry
// signal. Returning a non-nil response replaces the current one.
type ResponseInterceptor interface {
	OnResponse(ctx context.Context, req *transport.Request, resp *transport.Response) (*transport.Response, error)
}

// ErrorInterceptor observes or converts an error travelling back through the
// chain. An implementation that does not explicitly recover must return the
// error unchanged; swallowing it silently breaks the caller's error handling.
type ErrorInterceptor interface {
	OnError(ctx context.Context, req *transport.Request, err error) error
}

// Replayable marks a request interceptor as safe to re-run on retry attempts.
// Interceptors that mutate state irrevocably (idempotency tokens, one-shot
// signatures) must not implement this, or must return false: their effect
// from the first attempt is kept as-is for every retry.
type Replayable interface {
	ReplaySafe() bool
}

func replaySafe(i any) bool {
	r, ok := i.(Replayable)
	return ok && r.ReplaySafe()
}
