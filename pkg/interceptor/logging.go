package interceptor

import (
	"context"
	"log/slog"

	"github.com/mark3labs/swagger2client/pkg/transport"
)

// Logging observes requests, responses, and errors through slog. Pure
// observation: it never transforms the request or recovers an error.
type Logging struct {
	logger *slog.Logger
}

// NewLogging wraps the given logger; nil falls back to slog.Default.
func NewLogging(logger *slog.Logger) *Logging {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logging{logger: logger}
}

// ReplaySafe: retries are logged like first attempts.
func (l *Logging) ReplaySafe() bool { return true }

func (l *Logging) OnRequest(ctx context.Context, req *transport.Request) error {
	l.logger.DebugContext(ctx, "request",
		slog.String("method", req.Method),
		slog.String("url", req.URL.String()),
		slog.Int("body_bytes", len(req.Body)),
	)
	return nil
}

func (l *Logging) OnResponse(ctx context.Context, req *transport.Request, resp *transport.Response) (*transport.Response, error) {
	l.logger.DebugContext(ctx, "response",
		slog.String("method", req.Method),
		slog.String("url", req.URL.String()),
		slog.Int("status", resp.StatusCode),
		slog.Int("body_bytes", len(resp.Body)),
	)
	return resp, nil
}

// OnError logs and re-raises; it must not swallow the error.
func (l *Logging) OnError(ctx context.Context, req *transport.Request, err error) error {
	l.logger.ErrorContext(ctx, "request failed",
		slog.String("method", req.Method),
		slog.String("url", req.URL.String()),
		slog.String("error", err.Error()),
	)
	return err
}
