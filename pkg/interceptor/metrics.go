package interceptor

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mark3labs/swagger2client/pkg/transport"
)

// Metrics records request counts, durations, and local rejections with
// Prometheus collectors. Start times are tracked per in-flight request so a
// single shared instance serves concurrent calls.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RejectionsTotal *prometheus.CounterVec

	starts sync.Map // *transport.Request -> time.Time
}

// NewMetrics creates and registers the collectors. A nil registerer uses the
// default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "swagger2client",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total requests by method and status code",
			},
			[]string{"method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "swagger2client",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Request latency from send to fully-read response",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		RejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "swagger2client",
				Subsystem: "http",
				Name:      "rejections_total",
				Help:      "Calls rejected locally before reaching the transport",
			},
			[]string{"reason"},
		),
	}
	reg.MustRegister(m.RequestsTotal, m.RequestDuration, m.RejectionsTotal)
	return m
}

// ReplaySafe: each attempt is timed separately.
func (m *Metrics) ReplaySafe() bool { return true }

func (m *Metrics) OnRequest(_ context.Context, req *transport.Request) error {
	m.starts.Store(req, time.Now())
	return nil
}

func (m *Metrics) OnResponse(_ context.Context, req *transport.Request, resp *transport.Response) (*transport.Response, error) {
	m.observe(req)
	m.RequestsTotal.WithLabelValues(req.Method, strconv.Itoa(resp.StatusCode)).Inc()
	return resp, nil
}

// OnError counts local rejections separately from transport errors and
// re-raises.
func (m *Metrics) OnError(_ context.Context, req *transport.Request, err error) error {
	m.observe(req)
	switch {
	case errors.Is(err, ErrCircuitOpen):
		m.RejectionsTotal.WithLabelValues("circuit_open").Inc()
	case errors.Is(err, ErrRateLimited):
		m.RejectionsTotal.WithLabelValues("rate_limited").Inc()
	default:
		m.RequestsTotal.WithLabelValues(req.Method, "error").Inc()
	}
	return err
}

func (m *Metrics) observe(req *transport.Request) {
	if v, ok := m.starts.LoadAndDelete(req); ok {
		m.RequestDuration.WithLabelValues(req.Method).Observe(time.Since(v.(time.Time)).Seconds())
	}
}
