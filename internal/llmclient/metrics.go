package llmclient

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors for model round trips.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "polygon",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Model round trips by operation, model and outcome.",
		}, []string{"operation", "model", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "polygon",
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "Latency of model round trips.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"operation", "model"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration)
	}
	return m
}

// WithMetrics records one counter increment and one latency observation per
// call. A nil Metrics disables the middleware.
func WithMetrics(m *Metrics) Middleware {
	if m == nil {
		return nil
	}
	return func(next Client) Client {
		return &measured{next: next, m: m}
	}
}

type measured struct {
	next Client
	m    *Metrics
}

func (c *measured) Name() string { return c.next.Name() }
func (c *measured) Close() error { return c.next.Close() }
func (c *measured) Generate(ctx context.Context, req Request) (string, error) {
	op := string(OperationFrom(ctx))
	start := time.Now()
	txt, err := c.next.Generate(ctx, req)
	c.m.duration.WithLabelValues(op, req.Model).Observe(time.Since(start).Seconds())
	c.m.requests.WithLabelValues(op, req.Model, outcome(err)).Inc()
	return txt, err
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var le *Error
	if errors.As(err, &le) {
		return le.Kind.String()
	}
	return KindTransport.String()
}
