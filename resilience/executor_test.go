package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestExecutor_NoPatterns(t *testing.T) {
	e := NewExecutor()

	called := false
	err := e.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Errorf("Execute() = %v, called = %v", err, called)
	}
	if e.CircuitState() != StateClosed {
		t.Errorf("CircuitState() = %v, want closed without a breaker", e.CircuitState())
	}
}

func TestExecutor_NilOptionIgnored(t *testing.T) {
	e := NewExecutor(nil, WithTimeout(0))
	if e.timeout != nil {
		t.Error("non-positive timeout should be ignored")
	}
}

func TestExecutor_RetryInsideBreaker(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2})
	e := NewExecutor(
		WithCircuitBreaker(cb),
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})),
	)

	attempts := 0
	_ = e.Execute(context.Background(), func(context.Context) error {
		attempts++
		return &upstreamErr{status: 503}
	})

	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if m := cb.Metrics(); m.Failures != 1 || m.State != StateClosed {
		t.Errorf("breaker = %+v, want one failure per call and still closed", m)
	}
}

func TestExecutor_OpenCircuitSkipsRetry(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1})
	e := NewExecutor(
		WithCircuitBreaker(cb),
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond})),
	)

	_ = e.Execute(context.Background(), failWith(errors.New("down")))
	if e.CircuitState() != StateOpen {
		t.Fatalf("CircuitState() = %v, want open", e.CircuitState())
	}

	called := false
	err := e.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Errorf("Execute() = %v, called = %v; want ErrCircuitOpen without a call", err, called)
	}
}

func TestExecutor_EachAttemptPaysAToken(t *testing.T) {
	now := newFakeNow()
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 2, Now: now.Now})
	e := NewExecutor(
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})),
		WithRateLimiter(rl),
	)

	attempts := 0
	err := e.Execute(context.Background(), func(context.Context) error {
		attempts++
		return errors.New("transient")
	})

	if attempts != 2 {
		t.Errorf("attempts = %d, want 2 (bucket of 2)", attempts)
	}
	if !errors.Is(err, ErrRateLimitExceeded) {
		t.Errorf("Execute() error = %v, want ErrRateLimitExceeded on the third attempt", err)
	}
}

func TestExecutor_RateLimitDoesNotTripBreaker(t *testing.T) {
	now := newFakeNow()
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1})
	e := NewExecutor(
		WithCircuitBreaker(cb),
		WithRateLimiter(NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 1, Now: now.Now})),
	)

	_ = e.Execute(context.Background(), succeed)
	if err := e.Execute(context.Background(), succeed); !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("Execute() error = %v, want ErrRateLimitExceeded", err)
	}
	if cb.State() != StateClosed {
		t.Error("a local rejection opened the breaker")
	}
}

func TestExecutor_TimeoutPerAttempt(t *testing.T) {
	e := NewExecutor(
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond})),
		WithTimeout(20*time.Millisecond),
	)

	var attempts atomic.Int32
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		if attempts.Add(1) == 1 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})
	if err != nil {
		t.Errorf("Execute() error = %v, want second attempt to succeed", err)
	}
	if n := attempts.Load(); n != 2 {
		t.Errorf("attempts = %d, want 2", n)
	}
}

func TestDo(t *testing.T) {
	e := NewExecutor(WithRetry(NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})))

	attempts := 0
	got, err := Do(context.Background(), e, func(context.Context) ([]string, error) {
		attempts++
		if attempts == 1 {
			return []string{"partial"}, errors.New("transient")
		}
		return []string{"a", "b"}, nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if len(got) != 2 || got[0] != "a" {
		t.Errorf("Do() = %v, want result of the successful attempt", got)
	}

	got, err = Do(context.Background(), NewExecutor(), func(context.Context) ([]string, error) {
		return []string{"ignored"}, errors.New("failed")
	})
	if err == nil || got != nil {
		t.Errorf("Do() = %v, %v; want zero value with the error", got, err)
	}
}

func TestExecutor_Snapshot(t *testing.T) {
	bare := NewExecutor().Snapshot()
	if bare.Bulkhead != nil || bare.Circuit.State != StateClosed {
		t.Errorf("bare Snapshot() = %+v", bare)
	}

	now := newFakeNow()
	e := NewExecutor(
		WithCircuitBreaker(NewCircuitBreaker(CircuitBreakerConfig{})),
		WithRateLimiter(NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 2, Now: now.Now})),
		WithBulkhead(NewBulkhead(BulkheadConfig{MaxConcurrent: 4})),
	)
	_ = e.Execute(context.Background(), succeed)

	m := e.Snapshot()
	if m.Bulkhead == nil || m.Bulkhead.MaxConcurrent != 4 {
		t.Errorf("Snapshot().Bulkhead = %+v, want MaxConcurrent 4", m.Bulkhead)
	}
	if m.Tokens != 1 {
		t.Errorf("Snapshot().Tokens = %v, want 1", m.Tokens)
	}
}
