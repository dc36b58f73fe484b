package cache

import (
	"context"
)

// ComputeFunc produces the value for a cache miss.
type ComputeFunc[V any] func(ctx context.Context) (V, error)

// Outcome reports how a request was served.
type Outcome struct {
	// Hit is true when the value came from the store.
	Hit bool

	// TTLRemaining is the number of whole seconds the cached value has left.
	// It is zero on a miss.
	TTLRemaining int

	// Key is the cache key the request resolved to. Empty when key
	// derivation failed and the cache was bypassed.
	Key string
}

// Middleware wraps an expensive computation with a Store.
//
// It does not deduplicate concurrent misses for the same key: every caller
// that misses runs its own ComputeFunc.
type Middleware[V any] struct {
	store Store[V]
	keyer Keyer
}

// NewMiddleware creates a compute-or-serve wrapper around store.
// If keyer is nil, a DefaultKeyer is used.
func NewMiddleware[V any](store Store[V], keyer Keyer) *Middleware[V] {
	if keyer == nil {
		keyer = NewDefaultKeyer()
	}
	return &Middleware[V]{
		store: store,
		keyer: keyer,
	}
}

// Execute serves the value for (res, params) from the store, or runs compute
// and stores its result with the default TTL.
//
// Errors from compute are returned unchanged and nothing is stored.
// If a key cannot be derived, compute runs without caching.
func (m *Middleware[V]) Execute(
	ctx context.Context,
	res Resource,
	params any,
	compute ComputeFunc[V],
) (V, Outcome, error) {
	key, err := m.keyer.Key(res, params)
	if err != nil {
		v, err := compute(ctx)
		return v, Outcome{}, err
	}

	if cached, ttl, ok := m.store.GetWithTTL(key); ok {
		return cached, Outcome{Hit: true, TTLRemaining: ttl, Key: key}, nil
	}

	result, err := compute(ctx)
	if err != nil {
		// Don't cache errors
		return result, Outcome{Key: key}, err
	}

	m.store.Set(key, result)
	return result, Outcome{Key: key}, nil
}

// Store returns the underlying store.
func (m *Middleware[V]) Store() Store[V] {
	return m.store
}
