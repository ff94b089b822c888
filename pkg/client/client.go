// Package client is the runtime facade generated code links against. A
// Client resolves call descriptors into wire requests, pushes them through
// the interceptor chain and transport adapter, and classifies the outcome
// into the typed error taxonomy.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/swagger2client/pkg/interceptor"
	"github.com/mark3labs/swagger2client/pkg/transport"
)

// BodyEncoding selects how a call body is serialized.
type BodyEncoding int

const (
	// EncodingNone means the call carries no body.
	EncodingNone BodyEncoding = iota
	// EncodingStructured serializes a key/value body per the content type
	// (JSON, form-urlencoded, or multipart).
	EncodingStructured
	// EncodingPrimitive sends the body value as a raw string.
	EncodingPrimitive
)

// Call describes one generated method invocation.
type Call struct {
	Method       string
	PathTemplate string
	PathParams   map[string]string
	QueryParams  url.Values
	Headers      map[string]string
	Body         any
	BodyEncoding BodyEncoding
	ContentType  string
}

// Client executes calls against one API surface. Concurrent use is safe:
// per-call state lives on the stack, and the shared interceptor state
// (breaker, limiter windows) serializes its own updates.
type Client struct {
	baseURL   *url.URL
	headers   http.Header
	timeout   time.Duration
	auth      Auth
	adapter   transport.Adapter
	chain     *interceptor.Chain
	closeOnce *sync.Once
}

// New validates the config and builds a client. The adapter defaults to an
// HTTP adapter; validation failures are *ConfigError.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, &ConfigError{Field: "baseURL", Reason: err.Error()}
	}
	adapter := cfg.Adapter
	if adapter == nil {
		adapter = transport.NewHTTPAdapter(nil)
	}
	headers := make(http.Header, len(cfg.DefaultHeaders))
	for k, v := range cfg.DefaultHeaders {
		headers.Set(k, v)
	}
	return &Client{
		baseURL:   base,
		headers:   headers,
		timeout:   cfg.Timeout,
		auth:      cfg.Auth,
		adapter:   adapter,
		chain:     interceptor.NewChain(cfg.Interceptors...),
		closeOnce: &sync.Once{},
	}, nil
}

// WithHeaders returns an independent client sharing the same transport and
// interceptor chain, with the given headers merged over the existing ones.
// New values override same-named headers; the receiver is unaffected.
func (c *Client) WithHeaders(headers map[string]string) *Client {
	merged := c.headers.Clone()
	if merged == nil {
		merged = make(http.Header)
	}
	for k, v := range headers {
		merged.Set(k, v)
	}
	clone := *c
	clone.headers = merged
	return &clone
}

// Close releases the adapter's resources exactly once; redundant calls are
// no-ops, including across WithHeaders clones.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.adapter.Close()
	})
	return err
}

// Do executes one call through the chain and classifies non-2xx statuses
// into *APIError by kind. The returned response is always fully read.
func (c *Client) Do(ctx context.Context, call Call) (*transport.Response, error) {
	req, err := c.buildRequest(call)
	if err != nil {
		return nil, err
	}
	if c.timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}
	}
	resp, err := c.chain.Execute(ctx, req, c.adapter.Send)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, &APIError{
			Kind:       classifyStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Body:       resp.Body,
		}
	}
	return resp, nil
}

func (c *Client) buildRequest(call Call) (*transport.Request, error) {
	path, err := interpolatePath(call.PathTemplate, call.PathParams)
	if err != nil {
		return nil, err
	}
	u := *c.baseURL
	// interpolatePath escapes parameter values, so the joined path is the
	// encoded form; Path keeps the decoded form for the URL to stay coherent.
	raw := strings.TrimRight(u.EscapedPath(), "/") + path
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return nil, fmt.Errorf("client: invalid path %q: %w", raw, err)
	}
	u.Path = decoded
	u.RawPath = raw

	query := make(url.Values, len(call.QueryParams))
	for k, vs := range call.QueryParams {
		query[k] = append([]string(nil), vs...)
	}

	header := c.headers.Clone()
	if header == nil {
		header = make(http.Header)
	}
	for k, v := range call.Headers {
		header.Set(k, v)
	}

	// Call-time auth injection.
	if c.auth.APIKey != "" {
		switch c.auth.APIKeyIn {
		case "query":
			query.Set(c.auth.APIKeyName, c.auth.APIKey)
		case "header":
			header.Set(c.auth.APIKeyName, c.auth.APIKey)
		}
	}
	if c.auth.BearerToken != "" {
		header.Set("Authorization", "Bearer "+c.auth.BearerToken)
	}
	u.RawQuery = query.Encode()

	body, contentType, err := encodeBody(call)
	if err != nil {
		return nil, err
	}
	return &transport.Request{
		Method:      call.Method,
		URL:         &u,
		Header:      header,
		Body:        body,
		ContentType: contentType,
	}, nil
}

// interpolatePath substitutes every {name} placeholder; a placeholder with
// no value is a programming error in the generated code and fails the call.
func interpolatePath(template string, params map[string]string) (string, error) {
	var b strings.Builder
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("client: unterminated placeholder in path %q", template)
		}
		name := rest[open+1 : open+end]
		value, ok := params[name]
		if !ok {
			return "", fmt.Errorf("client: missing path parameter %q for %q", name, template)
		}
		b.WriteString(rest[:open])
		b.WriteString(url.PathEscape(value))
		rest = rest[open+end+1:]
	}
}

func encodeBody(call Call) ([]byte, string, error) {
	switch call.BodyEncoding {
	case EncodingNone:
		return nil, "", nil
	case EncodingPrimitive:
		contentType := call.ContentType
		if contentType == "" {
			contentType = "text/plain"
		}
		return []byte(fmt.Sprint(call.Body)), contentType, nil
	case EncodingStructured:
		return encodeStructured(call)
	}
	return nil, "", fmt.Errorf("client: unknown body encoding %d", call.BodyEncoding)
}

func encodeStructured(call Call) ([]byte, string, error) {
	switch call.ContentType {
	case "application/x-www-form-urlencoded":
		fields, err := bodyFields(call.Body)
		if err != nil {
			return nil, "", err
		}
		form := make(url.Values, len(fields))
		for k, v := range fields {
			form.Set(k, fmt.Sprint(v))
		}
		return []byte(form.Encode()), call.ContentType, nil
	case "multipart/form-data":
		fields, err := bodyFields(call.Body)
		if err != nil {
			return nil, "", err
		}
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for k, v := range fields {
			if err := w.WriteField(k, fmt.Sprint(v)); err != nil {
				return nil, "", fmt.Errorf("client: write multipart field %q: %w", k, err)
			}
		}
		if err := w.Close(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), w.FormDataContentType(), nil
	default:
		data, err := json.Marshal(call.Body)
		if err != nil {
			return nil, "", fmt.Errorf("client: encode json body: %w", err)
		}
		contentType := call.ContentType
		if contentType == "" {
			contentType = "application/json"
		}
		return data, contentType, nil
	}
}

func bodyFields(body any) (map[string]any, error) {
	switch v := body.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	default:
		// Round-trip through JSON so struct bodies work with form encodings.
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("client: encode form body: %w", err)
		}
		var out map[string]any
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("client: form body must be an object: %w", err)
		}
		return out, nil
	}
}

// Object decodes a single-object response body into T.
func Object[T any](resp *transport.Response) (T, error) {
	var out T
	if resp == nil || len(resp.Body) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, fmt.Errorf("client: decode object: %w", err)
	}
	return out, nil
}

// Collection decodes an array response body into a slice of T.
func Collection[T any](resp *transport.Response) ([]T, error) {
	if resp == nil || len(resp.Body) == 0 {
		return nil, nil
	}
	var out []T
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("client: decode collection: %w", err)
	}
	return out, nil
}
