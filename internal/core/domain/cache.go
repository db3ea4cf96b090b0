package domain

// CacheStats is a point-in-time snapshot of response-cache counters. HitRate is
// expressed as a percentage of lookups that were hits.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
	HitRate   float64
}
