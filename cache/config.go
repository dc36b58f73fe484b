package cache

import (
	"fmt"
	"math"
	"time"
)

// Config configures an LRU store. It is immutable once the store is built.
type Config struct {
	// MaxSize is the maximum number of resident entries. Must be positive.
	MaxSize int

	// DefaultTTL is applied by Set and by SetWithTTL when no override is given.
	// Must be positive.
	DefaultTTL time.Duration

	// MaxTTL clamps per-call TTL overrides. If zero, no maximum is enforced.
	MaxTTL time.Duration
}

// DefaultConfig returns the configuration used by the search service:
// 1000 entries, 60 second TTL.
func DefaultConfig() Config {
	return Config{
		MaxSize:    1000,
		DefaultTTL: 60 * time.Second,
	}
}

// Validate checks the configuration. Invalid sizes or TTLs are programming
// errors and are reported before the store is used.
func (c Config) Validate() error {
	if c.MaxSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxSize, c.MaxSize)
	}
	if c.DefaultTTL <= 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidTTL, c.DefaultTTL)
	}
	if c.MaxTTL < 0 {
		return fmt.Errorf("%w: max ttl %s is negative", ErrInvalidTTL, c.MaxTTL)
	}
	return nil
}

// EffectiveTTL returns the TTL to use, applying the default and clamping.
func (c Config) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = c.DefaultTTL
	}

	if c.MaxTTL > 0 && ttl > c.MaxTTL {
		ttl = c.MaxTTL
	}

	return ttl
}

// secondsToDuration converts a positive real number of seconds into a
// Duration. NaN, infinities and values that overflow map to zero so that
// Validate rejects them.
func secondsToDuration(seconds float64) time.Duration {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0
	}
	d := seconds * float64(time.Second)
	if d >= math.MaxInt64 || d <= math.MinInt64 {
		return 0
	}
	return time.Duration(d)
}
