package cache

// Stats is a point-in-time snapshot of store counters.
type Stats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Sets        int64 `json:"sets"`
	Evictions   int64 `json:"evictions"`   // capacity (LRU) removals
	Expirations int64 `json:"expirations"` // TTL removals, lazy or during pruning
	Clears      int64 `json:"clears"`
	Size        int   `json:"size"`
	Capacity    int   `json:"capacity"`
}

// HitRatio returns hits / (hits + misses), or 0 when nothing was looked up.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// counters are mutated only while the owning store's lock is held.
type counters struct {
	hits        int64
	misses      int64
	sets        int64
	evictions   int64
	expirations int64
	clears      int64
}
