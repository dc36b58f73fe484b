// Package resilience guards calls to upstream search engines.
//
// A cache miss ends in a slow, rate-limited network call. The patterns here
// keep those calls bounded:
//
//   - Rate Limiter: token bucket per data source.
//   - Bulkhead: caps concurrent fetches against one upstream.
//   - Circuit Breaker: stops calling an upstream that keeps failing.
//   - Retry: repeats transient failures with backoff.
//   - Timeout: bounds each attempt.
//
// Patterns compose through Executor:
//
//	exec := resilience.NewExecutor(
//	    resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
//	        Rate: 2, Burst: 2, WaitOnLimit: true, MaxWait: 30 * time.Second,
//	    })),
//	    resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 2})),
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{})),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 3})),
//	    resilience.WithTimeout(60*time.Second),
//	)
//
//	records, err := resilience.Do(ctx, exec, func(ctx context.Context) ([]Record, error) {
//	    return engine.Fetch(ctx, query)
//	})
//
// Errors that implement Retryable() bool decide for themselves whether a
// retry can help; a false answer also keeps the circuit closed, so a bad
// request cannot trip the breaker.
package resilience
