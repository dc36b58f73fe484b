package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRU is an in-memory store combining per-entry TTL with least-recently-used
// eviction.
//
// Recency is kept in a doubly linked list: the front is the head (least
// recently touched), the back is the tail. Expiry is lazy. Reads drop an
// expired entry they land on, and every Set prunes all expired entries before
// enforcing MaxSize. No background goroutine is started, so an idle expired
// entry may stay resident until the next Set.
//
// A single mutex guards the whole store; every operation holds it for its
// full duration.
type LRU[V any] struct {
	mu     sync.Mutex
	items  map[string]*list.Element
	order  *list.List
	config Config
	clock  Clock
	stats  counters
}

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// Option configures an LRU.
type Option func(*options)

type options struct {
	clock Clock
}

// WithClock sets the time source. A nil clock is ignored.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// New creates a store from cfg. It returns an error if cfg is invalid.
func New[V any](cfg Config, opts ...Option) (*LRU[V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{clock: SystemClock{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return &LRU[V]{
		items:  make(map[string]*list.Element, cfg.MaxSize+1),
		order:  list.New(),
		config: cfg,
		clock:  o.clock,
	}, nil
}

// NewCache creates a store holding at most maxSize entries, each living
// defaultTTLSeconds unless overridden.
func NewCache[V any](maxSize int, defaultTTLSeconds float64, opts ...Option) (*LRU[V], error) {
	return New[V](Config{
		MaxSize:    maxSize,
		DefaultTTL: secondsToDuration(defaultTTLSeconds),
	}, opts...)
}

// MustNew is like New but panics on an invalid configuration.
func MustNew[V any](cfg Config, opts ...Option) *LRU[V] {
	c, err := New[V](cfg, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Exists reports whether key is present and unexpired. A hit refreshes the
// entry's recency.
func (c *LRU[V]) Exists(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.lookupLocked(key, c.clock.Now())
	return ok
}

// Get retrieves a value. Returns (zero, false) on miss or expiry.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookupLocked(key, c.clock.Now())
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// GetWithTTL retrieves a value together with the whole seconds it has left
// to live, floor(max(0, expiresAt-now)).
func (c *LRU[V]) GetWithTTL(key string) (V, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	e, ok := c.lookupLocked(key, now)
	if !ok {
		var zero V
		return zero, 0, false
	}
	return e.value, remainingSeconds(e.expiresAt, now), true
}

// Set stores value under key with the default TTL.
func (c *LRU[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, 0)
}

// SetWithTTL stores value under key. A ttl <= 0 uses the default TTL; a
// positive ttl is clamped to Config.MaxTTL when one is set.
//
// After the write, every expired entry is pruned and the least recently
// touched entries are evicted until the store is within MaxSize.
func (c *LRU[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	expiresAt := now.Add(c.config.EffectiveTTL(ttl))

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[V])
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToBack(el)
	} else {
		c.items[key] = c.order.PushBack(&entry[V]{
			key:       key,
			value:     value,
			expiresAt: expiresAt,
		})
	}
	c.stats.sets++

	c.pruneExpiredLocked(now)
	c.enforceCapacityLocked()
}

// Clear removes every entry.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element, c.config.MaxSize+1)
	c.order.Init()
	c.stats.clears++
}

// Len returns the number of resident entries. It includes expired entries
// that no access or prune pass has removed yet.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Cap returns the configured maximum size.
func (c *LRU[V]) Cap() int {
	return c.config.MaxSize
}

// DefaultTTL returns the TTL applied when no override is given.
func (c *LRU[V]) DefaultTTL() time.Duration {
	return c.config.DefaultTTL
}

// Keys returns resident keys from least to most recently touched.
func (c *LRU[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.items))
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[V]).key)
	}
	return keys
}

// Stats returns a snapshot of the store counters.
func (c *LRU[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:        c.stats.hits,
		Misses:      c.stats.misses,
		Sets:        c.stats.sets,
		Evictions:   c.stats.evictions,
		Expirations: c.stats.expirations,
		Clears:      c.stats.clears,
		Size:        len(c.items),
		Capacity:    c.config.MaxSize,
	}
}

// lookupLocked returns the live entry for key and moves it to the tail.
// An expired entry is removed. Must be called with mu held.
func (c *LRU[V]) lookupLocked(key string, now time.Time) (*entry[V], bool) {
	el, ok := c.items[key]
	if !ok {
		c.stats.misses++
		return nil, false
	}

	e := el.Value.(*entry[V])
	if !now.Before(e.expiresAt) {
		c.removeLocked(el)
		c.stats.expirations++
		c.stats.misses++
		return nil, false
	}

	c.order.MoveToBack(el)
	c.stats.hits++
	return e, true
}

// pruneExpiredLocked removes every entry with expiresAt <= now.
// This walks the whole store.
func (c *LRU[V]) pruneExpiredLocked(now time.Time) {
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if !now.Before(el.Value.(*entry[V]).expiresAt) {
			c.removeLocked(el)
			c.stats.expirations++
		}
		el = next
	}
}

// enforceCapacityLocked evicts from the head until size <= MaxSize.
func (c *LRU[V]) enforceCapacityLocked() {
	for len(c.items) > c.config.MaxSize {
		el := c.order.Front()
		if el == nil {
			return
		}
		c.removeLocked(el)
		c.stats.evictions++
	}
}

func (c *LRU[V]) removeLocked(el *list.Element) {
	delete(c.items, el.Value.(*entry[V]).key)
	c.order.Remove(el)
}

func remainingSeconds(expiresAt, now time.Time) int {
	left := expiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(left / time.Second)
}

// Ensure LRU implements Store
var _ Store[any] = (*LRU[any])(nil)
