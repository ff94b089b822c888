// Package transport defines the wire-level request/response types and the
// Adapter interface that carries them. The default adapter wraps net/http;
// alternative adapters (test doubles, recording transports) implement the
// same interface.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Request is a fully-resolved outgoing call: the path template has already
// been interpolated and query parameters encoded into URL.
type Request struct {
	Method      string
	URL         *url.URL
	Header      http.Header
	Body        []byte
	ContentType string
}

// Clone returns a deep copy so interceptors on one attempt cannot observe
// mutations made on another.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	out := &Request{
		Method:      r.Method,
		ContentType: r.ContentType,
	}
	if r.URL != nil {
		u := *r.URL
		out.URL = &u
	}
	if r.Header != nil {
		out.Header = r.Header.Clone()
	}
	if r.Body != nil {
		out.Body = append([]byte(nil), r.Body...)
	}
	return out
}

// Response holds the fully-read result of a call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Adapter abstracts the underlying transport behind send(request) -> response.
// Implementations own their connection resources; Close must be safe to call
// more than once.
type Adapter interface {
	Send(ctx context.Context, req *Request) (*Response, error)
	Close() error
}

// TimeoutError is synthesized when a call exceeds its deadline. It wraps the
// underlying cause so errors.Is(err, context.DeadlineExceeded) still works.
type TimeoutError struct {
	Cause error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("transport: call timed out: %v", e.Cause)
}

func (e *TimeoutError) Unwrap() error { return e.Cause }

// IsTimeout reports whether err is (or wraps) a timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// HTTPAdapter sends requests with a net/http client.
type HTTPAdapter struct {
	client *http.Client
}

// NewHTTPAdapter wraps the given client; a nil client gets a sane default.
func NewHTTPAdapter(client *http.Client) *HTTPAdapter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPAdapter{client: client}
}

// Send issues the request and reads the full response body. Deadline
// expiry is surfaced as *TimeoutError rather than a bare context error.
func (a *HTTPAdapter) Send(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || req.URL == nil {
		return nil, errors.New("transport: nil request")
	}
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	if req.ContentType != "" && hreq.Header.Get("Content-Type") == "" {
		hreq.Header.Set("Content-Type", req.ContentType)
	}

	hresp, err := a.client.Do(hreq)
	if err != nil {
		if IsTimeout(err) {
			return nil, &TimeoutError{Cause: err}
		}
		return nil, err
	}
	defer hresp.Body.Close()

	data, err := io.ReadAll(hresp.Body)
	if err != nil {
		if IsTimeout(err) {
			return nil, &TimeoutError{Cause: err}
		}
		return nil, fmt.Errorf("transport: read body: %w", err)
	}
	return &Response{
		StatusCode: hresp.StatusCode,
		Header:     hresp.Header,
		Body:       data,
	}, nil
}

// Close releases idle connections. Safe to call repeatedly.
func (a *HTTPAdapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}
