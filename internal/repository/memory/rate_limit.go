package memory

import (
	"context"
	"sync"
	"time"

	"github.com/questforge/platform-guard/internal/core/domain"
	"github.com/questforge/platform-guard/internal/core/port"
)

// RateLimitStore keeps fixed-window counters in process memory. Stale records
// are reinitialised in place the next time their key is touched and are never
// deleted, so memory grows with the set of distinct identifiers seen. That
// growth is bounded by the population of callers and is accepted for a
// single-process deployment.
type RateLimitStore struct {
	mu      sync.Mutex
	records map[string]*domain.RateRecord
}

// NewRateLimitStore constructs an empty in-memory store.
func NewRateLimitStore() *RateLimitStore {
	return &RateLimitStore{records: make(map[string]*domain.RateRecord)}
}

// Consume applies the fixed-window check for one (identifier, limiter) key.
// The whole operation runs under a single lock so concurrent callers for the
// same key observe some serial order and at most MaxRequests are admitted per
// window. Denied requests do not change the count.
func (s *RateLimitStore) Consume(_ context.Context, identifier string, cfg domain.LimiterConfig, now time.Time) (domain.RateRecord, bool, error) {
	key := cfg.Name + ":" + identifier

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		rec = &domain.RateRecord{}
		s.records[key] = rec
		rec.WindowStart = now
		rec.ResetAt = now.Add(cfg.Window)
	} else if rec.Expired(now) {
		rec.Count = 0
		rec.WindowStart = now
		rec.ResetAt = now.Add(cfg.Window)
	}

	if rec.Count >= cfg.MaxRequests {
		return *rec, false, nil
	}

	rec.Count++
	return *rec, true, nil
}

// Len reports how many distinct (identifier, limiter) pairs have been seen.
func (s *RateLimitStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

var _ port.RateLimitStore = (*RateLimitStore)(nil)
