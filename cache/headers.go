package cache

import (
	"net/http"
	"strconv"
)

// Response headers describing the cache outcome.
const (
	HeaderCache             = "X-Cache"
	HeaderCacheTTLRemaining = "X-Cache-TTL-Remaining"
	HeaderCacheControl      = "Cache-Control"

	StatusHit  = "HIT"
	StatusMiss = "MISS"
)

// Status returns "HIT" or "MISS".
func (o Outcome) Status() string {
	if o.Hit {
		return StatusHit
	}
	return StatusMiss
}

// WriteHeaders annotates h with the outcome. X-Cache is always set; the
// remaining TTL and the Cache-Control max-age are only set on a hit.
func (o Outcome) WriteHeaders(h http.Header) {
	h.Set(HeaderCache, o.Status())
	if !o.Hit {
		return
	}

	ttl := o.TTLRemaining
	if ttl < 0 {
		ttl = 0
	}
	s := strconv.Itoa(ttl)
	h.Set(HeaderCacheTTLRemaining, s)
	h.Set(HeaderCacheControl, "public, max-age="+s)
}
