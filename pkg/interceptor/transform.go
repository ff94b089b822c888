package interceptor

import (
	"context"

	"github.com/mark3labs/swagger2client/pkg/transport"
)

// Transform applies pure transformation functions to the request and/or
// response. Either func may be nil.
type Transform struct {
	// Request mutates the outgoing request in place.
	Request func(*transport.Request) error
	// Response may replace the response; returning nil keeps the current one.
	Response func(*transport.Response) (*transport.Response, error)
	// Replay marks the request transform safe to re-run on retries.
	Replay bool
}

func (t *Transform) ReplaySafe() bool { return t.Replay }

func (t *Transform) OnRequest(_ context.Context, req *transport.Request) error {
	if t.Request == nil {
		return nil
	}
	return t.Request(req)
}

func (t *Transform) OnResponse(_ context.Context, _ *transport.Request, resp *transport.Response) (*transport.Response, error) {
	if t.Response == nil {
		return resp, nil
	}
	return t.Response(resp)
}
