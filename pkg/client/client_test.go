package client

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/swagger2client/pkg/transport"
)

// fakeAdapter records requests and replays canned responses.
type fakeAdapter struct {
	mu     sync.Mutex
	reqs   []*transport.Request
	resp   *transport.Response
	err    error
	closed int
}

func (f *fakeAdapter) Send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return &transport.Response{StatusCode: 200}, nil
}

func (f *fakeAdapter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeAdapter) lastRequest(t *testing.T) *transport.Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.reqs)
	return f.reqs[len(f.reqs)-1]
}

func newTestClient(t *testing.T, cfg Config, fa *fakeAdapter) *Client {
	t.Helper()
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.test/v1"
	}
	cfg.Adapter = fa
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestDo_BuildsRequest(t *testing.T) {
	fa := &fakeAdapter{}
	c := newTestClient(t, Config{DefaultHeaders: map[string]string{"X-Env": "test"}}, fa)

	q := url.Values{}
	q.Set("limit", "25")
	_, err := c.Do(context.Background(), Call{
		Method:       "GET",
		PathTemplate: "/users/{id}/posts",
		PathParams:   map[string]string{"id": "u 42"},
		QueryParams:  q,
	})
	require.NoError(t, err)

	req := fa.lastRequest(t)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/v1/users/u%2042/posts", req.URL.EscapedPath())
	assert.Equal(t, "25", req.URL.Query().Get("limit"))
	assert.Equal(t, "test", req.Header.Get("X-Env"))
}

func TestDo_MissingPathParam(t *testing.T) {
	fa := &fakeAdapter{}
	c := newTestClient(t, Config{}, fa)

	_, err := c.Do(context.Background(), Call{
		Method:       "GET",
		PathTemplate: "/users/{id}",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing path parameter "id"`)
	assert.Empty(t, fa.reqs)
}

func TestDo_AuthInjection(t *testing.T) {
	t.Run("api key in header", func(t *testing.T) {
		fa := &fakeAdapter{}
		c := newTestClient(t, Config{Auth: Auth{APIKey: "k1", APIKeyName: "X-API-Key", APIKeyIn: "header"}}, fa)
		_, err := c.Do(context.Background(), Call{Method: "GET", PathTemplate: "/ping"})
		require.NoError(t, err)
		assert.Equal(t, "k1", fa.lastRequest(t).Header.Get("X-API-Key"))
	})

	t.Run("api key in query", func(t *testing.T) {
		fa := &fakeAdapter{}
		c := newTestClient(t, Config{Auth: Auth{APIKey: "k2", APIKeyName: "api_key", APIKeyIn: "query"}}, fa)
		_, err := c.Do(context.Background(), Call{Method: "GET", PathTemplate: "/ping"})
		require.NoError(t, err)
		assert.Equal(t, "k2", fa.lastRequest(t).URL.Query().Get("api_key"))
	})

	t.Run("bearer token", func(t *testing.T) {
		fa := &fakeAdapter{}
		c := newTestClient(t, Config{Auth: Auth{BearerToken: "tok"}}, fa)
		_, err := c.Do(context.Background(), Call{Method: "GET", PathTemplate: "/ping"})
		require.NoError(t, err)
		assert.Equal(t, "Bearer tok", fa.lastRequest(t).Header.Get("Authorization"))
	})
}

func TestDo_EncodesJSONBody(t *testing.T) {
	fa := &fakeAdapter{}
	c := newTestClient(t, Config{}, fa)

	_, err := c.Do(context.Background(), Call{
		Method:       "POST",
		PathTemplate: "/users",
		Body:         map[string]any{"name": "kim"},
		BodyEncoding: EncodingStructured,
		ContentType:  "application/json",
	})
	require.NoError(t, err)

	req := fa.lastRequest(t)
	assert.Equal(t, "application/json", req.ContentType)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &decoded))
	assert.Equal(t, "kim", decoded["name"])
}

func TestDo_EncodesFormBody(t *testing.T) {
	fa := &fakeAdapter{}
	c := newTestClient(t, Config{}, fa)

	_, err := c.Do(context.Background(), Call{
		Method:       "POST",
		PathTemplate: "/login",
		Body:         map[string]any{"user": "kim", "pass": "s3cret"},
		BodyEncoding: EncodingStructured,
		ContentType:  "application/x-www-form-urlencoded",
	})
	require.NoError(t, err)

	form, err := url.ParseQuery(string(fa.lastRequest(t).Body))
	require.NoError(t, err)
	assert.Equal(t, "kim", form.Get("user"))
	assert.Equal(t, "s3cret", form.Get("pass"))
}

func TestDo_EncodesMultipartBody(t *testing.T) {
	fa := &fakeAdapter{}
	c := newTestClient(t, Config{}, fa)

	_, err := c.Do(context.Background(), Call{
		Method:       "POST",
		PathTemplate: "/upload",
		Body:         map[string]any{"label": "report"},
		BodyEncoding: EncodingStructured,
		ContentType:  "multipart/form-data",
	})
	require.NoError(t, err)

	req := fa.lastRequest(t)
	assert.True(t, strings.HasPrefix(req.ContentType, "multipart/form-data; boundary="))
	assert.Contains(t, string(req.Body), "report")
}

func TestDo_EncodesPrimitiveBody(t *testing.T) {
	fa := &fakeAdapter{}
	c := newTestClient(t, Config{}, fa)

	_, err := c.Do(context.Background(), Call{
		Method:       "POST",
		PathTemplate: "/notes",
		Body:         "raw note",
		BodyEncoding: EncodingPrimitive,
		ContentType:  "text/plain",
	})
	require.NoError(t, err)
	assert.Equal(t, "raw note", string(fa.lastRequest(t).Body))
}

func TestDo_ClassifiesErrors(t *testing.T) {
	cases := []struct {
		status int
		kind   ErrorKind
	}{
		{401, KindAuth},
		{403, KindAuth},
		{404, KindClient},
		{500, KindServer},
		{503, KindServer},
	}
	for _, tc := range cases {
		fa := &fakeAdapter{resp: &transport.Response{StatusCode: tc.status, Body: []byte("nope")}}
		c := newTestClient(t, Config{}, fa)

		resp, err := c.Do(context.Background(), Call{Method: "GET", PathTemplate: "/x"})
		require.Error(t, err, "status %d", tc.status)
		require.NotNil(t, resp, "response travels with the error for status %d", tc.status)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, tc.kind, apiErr.Kind, "status %d", tc.status)
		assert.Equal(t, tc.status, apiErr.StatusCode)
		assert.Equal(t, []byte("nope"), apiErr.Body)
	}
}

func TestDo_AppliesClientTimeout(t *testing.T) {
	var sawDeadline bool
	c := newTestClient(t, Config{Timeout: time.Minute}, &fakeAdapter{})
	c.adapter = &adapterFuncT{send: func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		_, sawDeadline = ctx.Deadline()
		return &transport.Response{StatusCode: 200}, nil
	}}

	_, err := c.Do(context.Background(), Call{Method: "GET", PathTemplate: "/x"})
	require.NoError(t, err)
	assert.True(t, sawDeadline, "client timeout should set a deadline when the caller has none")
}

type adapterFuncT struct {
	send func(context.Context, *transport.Request) (*transport.Response, error)
}

func (a *adapterFuncT) Send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	return a.send(ctx, req)
}

func (a *adapterFuncT) Close() error { return nil }

func TestWithHeaders_Independent(t *testing.T) {
	fa := &fakeAdapter{}
	c := newTestClient(t, Config{DefaultHeaders: map[string]string{"X-A": "1", "X-B": "base"}}, fa)

	scoped := c.WithHeaders(map[string]string{"X-B": "override", "X-C": "new"})

	_, err := scoped.Do(context.Background(), Call{Method: "GET", PathTemplate: "/x"})
	require.NoError(t, err)
	req := fa.lastRequest(t)
	assert.Equal(t, "1", req.Header.Get("X-A"))
	assert.Equal(t, "override", req.Header.Get("X-B"))
	assert.Equal(t, "new", req.Header.Get("X-C"))

	// The original client is unaffected.
	_, err = c.Do(context.Background(), Call{Method: "GET", PathTemplate: "/x"})
	require.NoError(t, err)
	req = fa.lastRequest(t)
	assert.Equal(t, "base", req.Header.Get("X-B"))
	assert.Empty(t, req.Header.Get("X-C"))
}

func TestClose_OnceAcrossClones(t *testing.T) {
	fa := &fakeAdapter{}
	c := newTestClient(t, Config{}, fa)
	scoped := c.WithHeaders(map[string]string{"X": "y"})

	require.NoError(t, c.Close())
	require.NoError(t, scoped.Close())
	require.NoError(t, c.Close())

	assert.Equal(t, 1, fa.closed)
}

func TestObjectAndCollection(t *testing.T) {
	type user struct {
		Name string `json:"name"`
	}

	u, err := Object[user](&transport.Response{Body: []byte(`{"name":"kim"}`)})
	require.NoError(t, err)
	assert.Equal(t, "kim", u.Name)

	us, err := Collection[user](&transport.Response{Body: []byte(`[{"name":"a"},{"name":"b"}]`)})
	require.NoError(t, err)
	require.Len(t, us, 2)
	assert.Equal(t, "b", us[1].Name)

	// Empty bodies decode to zero values, not errors.
	u, err = Object[user](&transport.Response{})
	require.NoError(t, err)
	assert.Empty(t, u.Name)

	us, err = Collection[user](nil)
	require.NoError(t, err)
	assert.Nil(t, us)

	_, err = Object[user](&transport.Response{Body: []byte("not json")})
	assert.Error(t, err)
}
