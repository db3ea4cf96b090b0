package port

import (
	"context"
	"time"

	"github.com/questforge/platform-guard/internal/core/domain"
)

// RateLimitStore persists fixed-window counters keyed by (identifier, limiter
// name). Consume runs the whole check-and-increment as one atomic unit per key:
// it fetches or lazily creates the record, reinitialises it when the window has
// elapsed, and increments the count only when the request is admitted. Denied
// requests must leave the count untouched. The returned record reflects the
// state after the operation.
type RateLimitStore interface {
	Consume(ctx context.Context, identifier string, cfg domain.LimiterConfig, now time.Time) (domain.RateRecord, bool, error)
}
