package resilience

import (
	"context"
	"sync"
	"time"
)

// guard is one resilience pattern wrapped around an operation.
type guard interface {
	Execute(ctx context.Context, op func(context.Context) error) error
}

// Executor composes resilience patterns around one upstream.
type Executor struct {
	breaker  *CircuitBreaker
	retry    *Retry
	limiter  *RateLimiter
	bulkhead *Bulkhead
	timeout  *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an executor with the given guards. Nil options are
// skipped.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithCircuitBreaker adds a circuit breaker to the executor.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.breaker = cb }
}

// WithRetry adds retry logic to the executor.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) { e.retry = r }
}

// WithRateLimiter adds rate limiting to the executor.
func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) { e.limiter = rl }
}

// WithBulkhead adds bulkhead isolation to the executor.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) { e.bulkhead = b }
}

// WithTimeout bounds each attempt. A non-positive timeout is ignored.
func WithTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		if timeout > 0 {
			e.timeout = NewTimeout(TimeoutConfig{Timeout: timeout})
		}
	}
}

// guards lists the configured patterns from the outside in:
//
//  1. circuit breaker, rejecting while the upstream is known bad
//  2. retry, repeating transient failures
//  3. rate limiter, one token per attempt
//  4. bulkhead, one slot per attempt
//  5. timeout, bounding each attempt
//
// The breaker sees one outcome per call, after retries are exhausted.
func (e *Executor) guards() []guard {
	var gs []guard
	if e.breaker != nil {
		gs = append(gs, e.breaker)
	}
	if e.retry != nil {
		gs = append(gs, e.retry)
	}
	if e.limiter != nil {
		gs = append(gs, e.limiter)
	}
	if e.bulkhead != nil {
		gs = append(gs, e.bulkhead)
	}
	if e.timeout != nil {
		gs = append(gs, e.timeout)
	}
	return gs
}

// Execute runs op through the configured patterns.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	run := op
	gs := e.guards()
	for i := len(gs) - 1; i >= 0; i-- {
		g, next := gs[i], run
		run = func(ctx context.Context) error { return g.Execute(ctx, next) }
	}
	return run(ctx)
}

// Do runs op through e and returns the value of a successful attempt.
// Attempts abandoned by the timeout guard cannot publish a value once Do
// has returned.
func Do[T any](ctx context.Context, e *Executor, op func(context.Context) (T, error)) (T, error) {
	var (
		mu     sync.Mutex
		done   bool
		result T
	)
	err := e.Execute(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err == nil {
			mu.Lock()
			if !done {
				result = v
			}
			mu.Unlock()
		}
		return err
	})

	mu.Lock()
	defer mu.Unlock()
	done = true
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// CircuitState reports the breaker state, or StateClosed without a breaker.
func (e *Executor) CircuitState() State {
	if e.breaker == nil {
		return StateClosed
	}
	return e.breaker.State()
}

// Snapshot returns the executor's guard metrics.
func (e *Executor) Snapshot() ExecutorMetrics {
	m := ExecutorMetrics{Circuit: CircuitBreakerMetrics{State: StateClosed}}
	if e.breaker != nil {
		m.Circuit = e.breaker.Metrics()
	}
	if e.bulkhead != nil {
		b := e.bulkhead.Metrics()
		m.Bulkhead = &b
	}
	if e.limiter != nil {
		m.Tokens = e.limiter.Tokens()
	}
	return m
}

// ExecutorMetrics aggregates the metrics of an executor's guards.
type ExecutorMetrics struct {
	Circuit  CircuitBreakerMetrics
	Bulkhead *BulkheadMetrics
	Tokens   float64
}
