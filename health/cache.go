package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/searchcache/cache"
)

// StatsSource is implemented by cache stores that expose counters.
type StatsSource interface {
	Stats() cache.Stats
}

// CacheChecker reports on the response cache. A full store is degraded:
// every new entry now evicts the least recently used one.
type CacheChecker struct {
	src StatsSource
}

// NewCacheChecker creates a checker over src.
func NewCacheChecker(src StatsSource) *CacheChecker {
	return &CacheChecker{src: src}
}

// Name returns "cache".
func (c *CacheChecker) Name() string {
	return "cache"
}

// Check snapshots the store statistics.
func (c *CacheChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	s := c.src.Stats()
	details := map[string]any{
		"size":        s.Size,
		"capacity":    s.Capacity,
		"hit_ratio":   s.HitRatio(),
		"evictions":   s.Evictions,
		"expirations": s.Expirations,
	}

	msg := fmt.Sprintf("%d/%d entries", s.Size, s.Capacity)
	if s.Capacity > 0 && s.Size >= s.Capacity {
		return Degraded("cache full: " + msg).WithDetails(details)
	}
	return Healthy(msg).WithDetails(details)
}
