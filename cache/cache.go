package cache

import (
	"errors"
	"time"
)

// Sentinel errors for cache construction and key derivation.
var (
	ErrNilCache        = errors.New("cache: cache is nil")
	ErrInvalidMaxSize  = errors.New("cache: max size must be positive")
	ErrInvalidTTL      = errors.New("cache: default ttl must be positive")
	ErrInvalidResource = errors.New("cache: resource is invalid")
)

// Store is the contract request handlers use to implement compute-or-serve.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: no operation fails for cache-logic reasons; a miss is a normal return.
// - Expiry: an expired entry is never returned by Exists, Get or GetWithTTL.
type Store[V any] interface {
	// Exists reports whether key is present and unexpired.
	Exists(key string) bool

	// Get retrieves a cached value. Returns (zero, false) on miss or expiry.
	Get(key string) (V, bool)

	// GetWithTTL retrieves a cached value and its remaining lifetime in whole seconds.
	GetWithTTL(key string) (V, int, bool)

	// Set stores a value with the default TTL.
	Set(key string, value V)

	// SetWithTTL stores a value with an explicit TTL. ttl <= 0 uses the default.
	SetWithTTL(key string, value V, ttl time.Duration)

	// Clear removes every entry.
	Clear()
}
