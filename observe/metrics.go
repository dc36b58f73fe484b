package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/searchcache/cache"
)

// Metrics records cache and upstream metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordLookup records a compute-or-serve lookup and whether it hit.
	RecordLookup(ctx context.Context, meta ResourceMeta, hit bool)

	// RecordUpstream records an upstream fetch with duration and error status.
	RecordUpstream(ctx context.Context, meta ResourceMeta, duration time.Duration, err error)
}

// StatsSource exposes store counters for observable gauges.
type StatsSource interface {
	Stats() cache.Stats
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter         metric.Meter
	lookups       metric.Int64Counter
	upstreamCount metric.Int64Counter
	upstreamErrs  metric.Int64Counter
	durationHist  metric.Float64Histogram
}

// NewMetrics creates a Metrics instance with the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	return newMetrics(meter)
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	lookups, err := meter.Int64Counter(
		"cache.lookups",
		metric.WithDescription("Total number of cache lookups"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	upstreamCount, err := meter.Int64Counter(
		"upstream.total",
		metric.WithDescription("Total number of upstream fetches"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	upstreamErrs, err := meter.Int64Counter(
		"upstream.errors",
		metric.WithDescription("Total number of failed upstream fetches"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"upstream.duration_ms",
		metric.WithDescription("Upstream fetch duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:         meter,
		lookups:       lookups,
		upstreamCount: upstreamCount,
		upstreamErrs:  upstreamErrs,
		durationHist:  durationHist,
	}, nil
}

// RecordLookup increments cache.lookups tagged with cache.hit.
func (m *metricsImpl) RecordLookup(ctx context.Context, meta ResourceMeta, hit bool) {
	attrs := append(meta.attributes(), attribute.Bool("cache.hit", hit))
	m.lookups.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordUpstream records metrics for an upstream fetch.
func (m *metricsImpl) RecordUpstream(ctx context.Context, meta ResourceMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(meta.attributes()...)

	m.upstreamCount.Add(ctx, 1, opt)
	if err != nil {
		m.upstreamErrs.Add(ctx, 1, opt)
	}

	durationMs := float64(duration.Milliseconds())
	m.durationHist.Record(ctx, durationMs, opt)
}

// RegisterCacheGauges exports store occupancy and removal counters as
// observable instruments read at collection time.
func RegisterCacheGauges(meter metric.Meter, src StatsSource) (metric.Registration, error) {
	size, err := meter.Int64ObservableGauge(
		"cache.size",
		metric.WithDescription("Resident cache entries"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	capacity, err := meter.Int64ObservableGauge(
		"cache.capacity",
		metric.WithDescription("Configured maximum cache entries"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	evictions, err := meter.Int64ObservableCounter(
		"cache.evictions",
		metric.WithDescription("Entries evicted to stay within capacity"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	expirations, err := meter.Int64ObservableCounter(
		"cache.expirations",
		metric.WithDescription("Entries removed after their TTL elapsed"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := src.Stats()
		o.ObserveInt64(size, int64(s.Size))
		o.ObserveInt64(capacity, int64(s.Capacity))
		o.ObserveInt64(evictions, s.Evictions)
		o.ObserveInt64(expirations, s.Expirations)
		return nil
	}, size, capacity, evictions, expirations)
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics {
	return &noopMetrics{}
}

func (m *noopMetrics) RecordLookup(ctx context.Context, meta ResourceMeta, hit bool) {}

func (m *noopMetrics) RecordUpstream(ctx context.Context, meta ResourceMeta, duration time.Duration, err error) {
}
