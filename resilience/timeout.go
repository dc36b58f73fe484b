package resilience

import (
	"context"
	"errors"
	"time"
)

// DefaultTimeout bounds one upstream attempt when no timeout is configured.
const DefaultTimeout = 60 * time.Second

// TimeoutConfig configures the timeout wrapper.
type TimeoutConfig struct {
	// Timeout is the maximum duration of one attempt.
	Timeout time.Duration
}

// Timeout bounds operations with a deadline.
type Timeout struct {
	d time.Duration
}

// NewTimeout creates a timeout wrapper. A non-positive Timeout uses
// DefaultTimeout.
func NewTimeout(config TimeoutConfig) *Timeout {
	d := config.Timeout
	if d <= 0 {
		d = DefaultTimeout
	}
	return &Timeout{d: d}
}

// Execute runs op under a derived deadline. When that deadline passes first
// ErrTimeout is returned at once and op is left to observe its done
// context. Cancellation or expiry of the parent context is returned as-is.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	attemptCtx, cancel := context.WithTimeoutCause(ctx, t.d, ErrTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- op(attemptCtx) }()

	var err error
	select {
	case err = <-done:
	case <-attemptCtx.Done():
		err = attemptCtx.Err()
	}
	if err == nil {
		return nil
	}
	if perr := ctx.Err(); perr != nil {
		return perr
	}
	if errors.Is(err, context.DeadlineExceeded) && errors.Is(context.Cause(attemptCtx), ErrTimeout) {
		return ErrTimeout
	}
	return err
}

// Duration returns the configured timeout.
func (t *Timeout) Duration() time.Duration {
	return t.d
}
