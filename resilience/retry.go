package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy shapes the delay between attempts.
type BackoffStrategy int

const (
	// BackoffExponential multiplies the delay by Multiplier after each attempt.
	BackoffExponential BackoffStrategy = iota
	// BackoffLinear waits InitialDelay times the attempt number.
	BackoffLinear
	// BackoffConstant always waits InitialDelay.
	BackoffConstant
)

func (s BackoffStrategy) base(initial time.Duration, multiplier float64, attempt int) time.Duration {
	switch s {
	case BackoffConstant:
		return initial
	case BackoffLinear:
		return initial * time.Duration(attempt)
	default:
		return time.Duration(float64(initial) * math.Pow(multiplier, float64(attempt-1)))
	}
}

// RetryConfig configures the retry behavior. Zero fields take the defaults
// noted beside them.
type RetryConfig struct {
	MaxAttempts  int           // including the first; default 3
	InitialDelay time.Duration // default 500ms
	MaxDelay     time.Duration // caps every wait, server hints included; default 30s
	Multiplier   float64       // default 2
	Strategy     BackoffStrategy

	// Jitter adds up to 25% random delay.
	Jitter bool

	// RetryIf decides whether err is worth another attempt.
	// Default: IsRetryable
	RetryIf func(err error) bool

	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry repeats failed operations with backoff.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	config.MaxAttempts = orDefault(config.MaxAttempts, 3)
	config.InitialDelay = orDefault(config.InitialDelay, 500*time.Millisecond)
	config.MaxDelay = orDefault(config.MaxDelay, 30*time.Second)
	config.Multiplier = orDefault(config.Multiplier, 2.0)
	if config.RetryIf == nil {
		config.RetryIf = IsRetryable
	}
	return &Retry{config: config}
}

func orDefault[T int | float64 | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

// Execute runs op until it succeeds, RetryIf rejects the error or the
// attempts run out. The last error is returned.
//
// An error carrying a RetryAfter() hint, such as an upstream 429 with a
// Retry-After header, waits at least that long, capped at MaxDelay.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil || attempt >= r.config.MaxAttempts || !r.config.RetryIf(err) {
			return err
		}

		d := r.delay(attempt, err)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, d)
		}
		if err := sleep(ctx, d); err != nil {
			return err
		}
	}
}

func (r *Retry) delay(attempt int, err error) time.Duration {
	d := r.config.Strategy.base(r.config.InitialDelay, r.config.Multiplier, attempt)
	if r.config.Jitter && d > 0 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		d += time.Duration(rand.Int64N(int64(d/4) + 1))
	}
	return min(max(d, retryAfter(err)), r.config.MaxDelay)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
