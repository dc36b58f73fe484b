package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jonwraymond/searchcache/cache"
)

// Middleware wraps compute-or-serve lookups with observability (tracing,
// metrics, logging).
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: the lookup span is propagated to the fetch function.
//   - Errors: errors from the fetch are recorded and propagated unchanged.
//   - Ownership: params and results are passed through without modification.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
// Nil components are replaced with no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
// This is a convenience function for common use cases.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Logger returns the middleware's logger.
func (m *Middleware) Logger() Logger {
	return m.logger
}

// Serve runs a compute-or-serve lookup through cm inside a span named after
// meta. The fetch runs only on a miss and its duration and error are
// recorded as upstream metrics. Every lookup is counted and logged with its
// outcome.
func Serve[V any](
	ctx context.Context,
	m *Middleware,
	cm *cache.Middleware[V],
	meta ResourceMeta,
	params any,
	fetch cache.ComputeFunc[V],
) (V, cache.Outcome, error) {
	ctx, span := m.tracer.StartSpan(ctx, meta)
	start := time.Now()

	res := cache.Resource{Source: meta.Source, Operation: meta.Operation}
	result, outcome, err := cm.Execute(ctx, res, params, upstream(m, meta, fetch))

	duration := time.Since(start)

	span.SetAttributes(attribute.Bool("cache.hit", outcome.Hit))
	if outcome.Hit {
		span.SetAttributes(attribute.Int("cache.ttl_remaining", outcome.TTLRemaining))
	}
	m.tracer.EndSpan(span, err)

	m.metrics.RecordLookup(ctx, meta, outcome.Hit)

	fields := []Field{
		{Key: "cache", Value: outcome.Status()},
		{Key: "duration_ms", Value: float64(duration.Milliseconds())},
	}
	if outcome.Hit {
		fields = append(fields, Field{Key: "ttl_remaining", Value: outcome.TTLRemaining})
	}

	logger := m.logger.WithResource(meta)
	if err != nil {
		fields = append(fields, Field{Key: "error", Value: err.Error()})
		logger.Error(ctx, "lookup failed", fields...)
	} else if outcome.Hit {
		logger.Info(ctx, "cache.hit", fields...)
	} else {
		logger.Info(ctx, "cache.miss", fields...)
	}

	return result, outcome, err
}

// upstream wraps fetch with upstream duration and error metrics.
func upstream[V any](m *Middleware, meta ResourceMeta, fetch cache.ComputeFunc[V]) cache.ComputeFunc[V] {
	return func(ctx context.Context) (V, error) {
		start := time.Now()
		result, err := fetch(ctx)
		m.metrics.RecordUpstream(ctx, meta, time.Since(start), err)
		return result, err
	}
}
