package port

import (
	"github.com/questforge/platform-guard/internal/core/domain"
)

// ResponseCache stores prior companion replies keyed by a hash of the
// normalised (category, language, text) tuple. Implementations must be safe for
// concurrent use and must never block on I/O; lookups sit on the hot path of
// every companion request.
type ResponseCache interface {
	// Get returns the cached reply for the query, if a live entry exists.
	// Expired entries are removed on access and reported as misses.
	Get(query domain.CompanionQuery) (domain.CompanionReply, bool)
	// Set stores the reply unless it is flagged as an error or the query's
	// category is not cacheable. At capacity the entry with the oldest
	// insertion timestamp is evicted first.
	Set(query domain.CompanionQuery, reply domain.CompanionReply)
	// Stats returns a snapshot of hit/miss/eviction counters and current size.
	Stats() domain.CacheStats
	// Clear drops every entry. Hit and miss counters survive.
	Clear()
	// ResetStats zeroes the hit, miss, and eviction counters only.
	ResetStats()
}
