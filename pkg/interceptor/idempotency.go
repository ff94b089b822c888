package interceptor

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/mark3labs/swagger2client/pkg/transport"
)

// IdempotencyHeader is the header carrying the per-call token.
const IdempotencyHeader = "Idempotency-Key"

// IdempotencyKey stamps mutating requests with a fresh UUID. It is
// deliberately not replay-safe: the token from the first attempt must stay
// stable across retries of the same logical call.
type IdempotencyKey struct{}

// NewIdempotencyKey returns the interceptor.
func NewIdempotencyKey() *IdempotencyKey { return &IdempotencyKey{} }

func (k *IdempotencyKey) OnRequest(_ context.Context, req *transport.Request) error {
	switch req.Method {
	case "POST", "PUT", "PATCH", "DELETE":
	default:
		return nil
	}
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	if req.Header.Get(IdempotencyHeader) == "" {
		req.Header.Set(IdempotencyHeader, uuid.NewString())
	}
	return nil
}
