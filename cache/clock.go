package cache

import (
	"sync"
	"time"
)

// Clock supplies the current instant for TTL bookkeeping.
//
// Implementations must be monotonic: successive calls never go backwards.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now. The returned values carry Go's monotonic clock
// reading, so Sub and Before are unaffected by wall-clock adjustments.
type SystemClock struct{}

// Now returns the current instant.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// ManualClock is a Clock that only moves when told to. It is intended for
// tests that need to simulate elapsed time without sleeping.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock frozen at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current simulated instant.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d. Negative durations are ignored.
func (c *ManualClock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set moves the clock to t. Setting a time before the current one is ignored.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.now) {
		c.now = t
	}
}

var (
	_ Clock = SystemClock{}
	_ Clock = (*ManualClock)(nil)
)
