// Package cache provides the in-memory response cache that fronts upstream
// data source lookups.
//
// It provides a generic LRU store with per-entry TTL and lazy expiry, a
// deterministic key serializer for nested request parameters, and a
// compute-or-serve Middleware that reports HIT/MISS outcomes for HTTP
// caching headers.
//
// Concurrent misses for the same key are not deduplicated: each caller runs
// its own compute function and the last successful result wins.
package cache
