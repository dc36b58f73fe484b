package source

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/searchcache/health"
	"github.com/jonwraymond/searchcache/resilience"
)

// GuardConfig configures the executor built for each data source. Zero
// values take the resilience package defaults.
type GuardConfig struct {
	// Rate and Burst size each source's token bucket. Requests queue for a
	// token for at most MaxWait.
	Rate    float64
	Burst   int
	MaxWait time.Duration

	// MaxConcurrent bounds in-flight requests per source.
	MaxConcurrent int

	// Attempts is the total number of tries for retryable failures.
	// RetryDelay is the first backoff delay.
	Attempts   int
	RetryDelay time.Duration

	// Timeout bounds each attempt.
	Timeout time.Duration

	// MaxFailures and ResetTimeout tune the circuit breaker.
	MaxFailures  int
	ResetTimeout time.Duration

	// OnRetry and OnStateChange observe the guards.
	OnRetry       func(ds DataSource, attempt int, err error, delay time.Duration)
	OnStateChange func(ds DataSource, from, to resilience.State)
}

// Registry holds one resilience executor per data source, so a failing
// platform never drains another platform's budget.
type Registry struct {
	executors map[DataSource]*resilience.Executor
}

// NewRegistry builds an executor for every served data source.
func NewRegistry(cfg GuardConfig) *Registry {
	r := &Registry{executors: make(map[DataSource]*resilience.Executor)}
	for _, ds := range DataSources() {
		r.executors[ds] = newExecutor(ds, cfg)
	}
	return r
}

func newExecutor(ds DataSource, cfg GuardConfig) *resilience.Executor {
	retry := resilience.RetryConfig{
		MaxAttempts:  cfg.Attempts,
		InitialDelay: cfg.RetryDelay,
		Jitter:       true,
	}
	if cfg.OnRetry != nil {
		retry.OnRetry = func(attempt int, err error, delay time.Duration) {
			cfg.OnRetry(ds, attempt, err, delay)
		}
	}
	breaker := resilience.CircuitBreakerConfig{
		MaxFailures:  cfg.MaxFailures,
		ResetTimeout: cfg.ResetTimeout,
	}
	if cfg.OnStateChange != nil {
		breaker.OnStateChange = func(from, to resilience.State) {
			cfg.OnStateChange(ds, from, to)
		}
	}

	var bulkhead *resilience.Bulkhead
	if cfg.MaxConcurrent > 0 {
		bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: cfg.MaxConcurrent,
			MaxWait:       cfg.MaxWait,
		})
	}

	opts := []resilience.ExecutorOption{
		resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(breaker)),
		resilience.WithRetry(resilience.NewRetry(retry)),
		resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:        cfg.Rate,
			Burst:       cfg.Burst,
			WaitOnLimit: true,
			MaxWait:     cfg.MaxWait,
		})),
		resilience.WithTimeout(cfg.Timeout),
	}
	if bulkhead != nil {
		opts = append(opts, resilience.WithBulkhead(bulkhead))
	}
	return resilience.NewExecutor(opts...)
}

// Executor returns the executor guarding ds, or nil for an unknown source.
func (r *Registry) Executor(ds DataSource) *resilience.Executor {
	return r.executors[ds]
}

// Reporters exposes each executor's circuit keyed by data source name.
func (r *Registry) Reporters() map[string]health.CircuitReporter {
	out := make(map[string]health.CircuitReporter, len(r.executors))
	for ds, ex := range r.executors {
		out[string(ds)] = ex
	}
	return out
}

// Snapshot returns the guard metrics of every executor.
func (r *Registry) Snapshot() map[string]resilience.ExecutorMetrics {
	out := make(map[string]resilience.ExecutorMetrics, len(r.executors))
	for ds, ex := range r.executors {
		out[string(ds)] = ex.Snapshot()
	}
	return out
}

// ResilientEngine runs every fetch through the executor of its data source.
type ResilientEngine struct {
	next     Engine
	registry *Registry
}

// NewResilientEngine wraps next with the executors in registry.
func NewResilientEngine(next Engine, registry *Registry) *ResilientEngine {
	return &ResilientEngine{next: next, registry: registry}
}

// Fetch implements Engine.
func (e *ResilientEngine) Fetch(ctx context.Context, q Query) ([]Record, error) {
	ex := e.registry.Executor(q.Source)
	if ex == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, q.Source)
	}
	return resilience.Do(ctx, ex, func(ctx context.Context) ([]Record, error) {
		return e.next.Fetch(ctx, q)
	})
}
