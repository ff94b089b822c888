package interceptor

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/swagger2client/pkg/transport"
)

func newTestRequest(method string) *transport.Request {
	u, _ := url.Parse("https://api.test/things")
	return &transport.Request{Method: method, URL: u, Header: make(http.Header)}
}

func okSend(status int) SendFunc {
	return func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		return &transport.Response{StatusCode: status, Header: make(http.Header)}, nil
	}
}

// recorder logs the order its hooks fire in.
type recorder struct {
	name   string
	events *[]string
	replay bool
}

func (r *recorder) ReplaySafe() bool { return r.replay }

func (r *recorder) OnRequest(context.Context, *transport.Request) error {
	*r.events = append(*r.events, r.name+":req")
	return nil
}

func (r *recorder) OnResponse(_ context.Context, _ *transport.Request, resp *transport.Response) (*transport.Response, error) {
	*r.events = append(*r.events, r.name+":resp")
	return resp, nil
}

func (r *recorder) OnError(_ context.Context, _ *transport.Request, err error) error {
	*r.events = append(*r.events, r.name+":err")
	return err
}

func TestChain_Ordering(t *testing.T) {
	var events []string
	chain := NewChain(
		&recorder{name: "a", events: &events, replay: true},
		&recorder{name: "b", events: &events, replay: true},
	)

	resp, err := chain.Execute(context.Background(), newTestRequest("GET"), okSend(200))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	assert.Equal(t, []string{"a:req", "b:req", "b:resp", "a:resp"}, events)
}

func TestChain_ErrorUnwindsInReverse(t *testing.T) {
	var events []string
	boom := errors.New("boom")
	chain := NewChain(
		&recorder{name: "a", events: &events, replay: true},
		&recorder{name: "b", events: &events, replay: true},
	)

	_, err := chain.Execute(context.Background(), newTestRequest("GET"), func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, []string{"a:req", "b:req", "b:err", "a:err"}, events)
}

func TestChain_RetryBudgetExhausted(t *testing.T) {
	retry := NewRetry(RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond})
	chain := NewChain(retry)

	var attempts int
	resp, err := chain.Execute(context.Background(), newTestRequest("GET"), func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		attempts++
		return &transport.Response{StatusCode: 503}, nil
	})

	// MaxRetries=3 means four attempts total, then the last response
	// surfaces unmodified.
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 503, resp.StatusCode)
	assert.Equal(t, 4, attempts)
}

func TestChain_RetryStopsOnSuccess(t *testing.T) {
	retry := NewRetry(RetryConfig{MaxRetries: 5, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond})
	chain := NewChain(retry)

	var attempts int
	resp, err := chain.Execute(context.Background(), newTestRequest("GET"), func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		attempts++
		if attempts < 3 {
			return &transport.Response{StatusCode: 502}, nil
		}
		return &transport.Response{StatusCode: 200}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, 3, attempts)
}

func TestChain_RetryOnTimeoutError(t *testing.T) {
	retry := NewRetry(RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond})
	chain := NewChain(retry)

	cause := &transport.TimeoutError{Cause: context.DeadlineExceeded}
	var attempts int
	resp, err := chain.Execute(context.Background(), newTestRequest("GET"), func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		attempts++
		return nil, cause
	})

	require.Nil(t, resp)
	var te *transport.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 3, attempts)
}

func TestChain_NonRetryableErrorSurfaces(t *testing.T) {
	retry := NewRetry(RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond})
	chain := NewChain(retry)

	boom := errors.New("connection refused")
	var attempts int
	_, err := chain.Execute(context.Background(), newTestRequest("GET"), func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		attempts++
		return nil, boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
}

func TestChain_RetrySkipsNonReplaySafeInterceptors(t *testing.T) {
	var stamped int
	stamp := &Transform{
		Request: func(req *transport.Request) error {
			stamped++
			return nil
		},
		Replay: false,
	}
	retry := NewRetry(RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond})
	chain := NewChain(stamp, retry)

	var attempts int
	_, err := chain.Execute(context.Background(), newTestRequest("POST"), func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		attempts++
		return &transport.Response{StatusCode: 500}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 1, stamped, "non-replay-safe interceptor must run only on the first attempt")
}

func TestChain_RetrySignalNeverEscapes(t *testing.T) {
	retry := NewRetry(RetryConfig{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond})
	chain := NewChain(retry)

	resp, err := chain.Execute(context.Background(), newTestRequest("GET"), okSend(500))
	require.NoError(t, err)
	require.NotNil(t, resp)

	var sig *retrySignal
	assert.False(t, errors.As(err, &sig))
}

func TestChain_ContextCanceledDuringBackoff(t *testing.T) {
	retry := NewRetry(RetryConfig{MaxRetries: 3, BaseDelay: 30 * time.Second, MaxDelay: time.Minute})
	chain := NewChain(retry)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := chain.Execute(ctx, newTestRequest("GET"), okSend(503))
	var te *transport.TimeoutError
	require.ErrorAs(t, err, &te)
}

func TestChain_TransformReplacesResponse(t *testing.T) {
	upgraded := &transport.Response{StatusCode: 200, Body: []byte("replaced")}
	tr := &Transform{
		Response: func(resp *transport.Response) (*transport.Response, error) {
			return upgraded, nil
		},
	}
	chain := NewChain(tr)

	resp, err := chain.Execute(context.Background(), newTestRequest("GET"), okSend(299))
	require.NoError(t, err)
	assert.Same(t, upgraded, resp)
}

func TestRetrySignal_BackoffCapped(t *testing.T) {
	r := NewRetry(RetryConfig{MaxRetries: 10, BaseDelay: time.Second, MaxDelay: 4 * time.Second})
	sig := &retrySignal{policy: r, maxAttempts: 11}

	for attempt, wantBase := range map[int]time.Duration{
		1: time.Second,
		2: 2 * time.Second,
		3: 4 * time.Second,
		6: 4 * time.Second,
	} {
		got := sig.backoff(attempt)
		assert.GreaterOrEqual(t, got, wantBase, "attempt %d", attempt)
		assert.Less(t, got, wantBase+retryJitterMax+time.Millisecond, "attempt %d", attempt)
	}
}
