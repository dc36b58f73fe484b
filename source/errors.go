package source

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Sentinel errors for source operations.
var (
	// ErrUnknownSource is returned for a data source name that is not served.
	ErrUnknownSource = errors.New("source: unknown data source")

	// ErrUnknownOperation is returned for an operation name that is not served.
	ErrUnknownOperation = errors.New("source: unknown operation")

	// ErrInvalidRequest wraps every request validation failure.
	ErrInvalidRequest = errors.New("source: invalid request")

	// ErrUnsupported is returned when an engine cannot serve a query.
	ErrUnsupported = errors.New("source: operation not supported")

	// ErrMissingBaseURL is returned when an HTTP engine has no gateway URL.
	ErrMissingBaseURL = errors.New("source: base url is required")
)

// ValidationError reports one invalid request field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements error.
func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Is makes ValidationError match ErrInvalidRequest.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// Retryable reports false: a bad request stays bad.
func (e *ValidationError) Retryable() bool {
	return false
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// UpstreamError is a non-2xx reply from the gateway.
type UpstreamError struct {
	Status int
	Body   string

	retryAfter time.Duration
}

// Error implements error.
func (e *UpstreamError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("source: upstream returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("source: upstream returned %d: %s", e.Status, body)
}

// Retryable reports whether the status is worth another attempt: 429 and
// any 5xx.
func (e *UpstreamError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// RetryAfter returns the delay the gateway asked for, or zero.
func (e *UpstreamError) RetryAfter() time.Duration {
	return e.retryAfter
}

// parseRetryAfter reads a Retry-After header given in seconds or as an
// HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
