package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/questforge/platform-guard/internal/core/domain"
	"github.com/questforge/platform-guard/internal/core/port"
	"github.com/questforge/platform-guard/internal/repository"
)

// FixedWindowConfig defines configuration for the fixed window store.
type FixedWindowConfig struct {
	KeyPrefix string
}

// consumeScript runs the whole check-and-increment as one atomic unit on the
// Redis server. The record is reinitialised in place once its window has
// elapsed; a denied request leaves the count untouched.
var consumeScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])

local start = tonumber(redis.call("HGET", KEYS[1], "start"))
local count = tonumber(redis.call("HGET", KEYS[1], "count")) or 0

if not start or now - start >= window then
  start = now
  count = 0
end

local allowed = 0
if count < max then
  count = count + 1
  allowed = 1
end

redis.call("HSET", KEYS[1], "start", start, "count", count)
redis.call("PEXPIRE", KEYS[1], window * 2)

return {allowed, count, start}
`)

// RateLimitStore persists fixed-window counters in Redis hashes. Each
// (limiter, identifier) pair maps to one hash holding the window start and
// the admitted count. Keys expire after two idle windows, which a caller
// cannot distinguish from the lazy reinitialisation an expired window gets
// anyway.
type RateLimitStore struct {
	client *redis.Client
	cfg    FixedWindowConfig
}

// NewRateLimitStore constructs a store using the provided Redis client and config.
func NewRateLimitStore(client *redis.Client, cfg FixedWindowConfig) *RateLimitStore {
	return &RateLimitStore{client: client, cfg: cfg}
}

// Consume applies the fixed-window check for one (identifier, limiter) key.
// Failures to reach Redis are reported as repository.ErrUnavailable so the
// caller can apply its failure policy.
func (s *RateLimitStore) Consume(ctx context.Context, identifier string, cfg domain.LimiterConfig, now time.Time) (domain.RateRecord, bool, error) {
	key := s.key(cfg.Name, identifier)

	result, err := consumeScript.Run(ctx, s.client, []string{key},
		now.UnixMilli(),
		cfg.Window.Milliseconds(),
		cfg.MaxRequests,
	).Result()
	if err != nil {
		return domain.RateRecord{}, false, fmt.Errorf("%w: redis consume: %v", repository.ErrUnavailable, err)
	}

	values, ok := result.([]any)
	if !ok || len(values) != 3 {
		return domain.RateRecord{}, false, fmt.Errorf("%w: unexpected consume reply %v", repository.ErrUnavailable, result)
	}

	allowed, ok := values[0].(int64)
	if !ok {
		return domain.RateRecord{}, false, fmt.Errorf("%w: unexpected allowed flag %v", repository.ErrUnavailable, values[0])
	}

	count, ok := values[1].(int64)
	if !ok {
		return domain.RateRecord{}, false, fmt.Errorf("%w: unexpected count %v", repository.ErrUnavailable, values[1])
	}

	startMillis, ok := values[2].(int64)
	if !ok {
		return domain.RateRecord{}, false, fmt.Errorf("%w: unexpected window start %v", repository.ErrUnavailable, values[2])
	}

	windowStart := time.UnixMilli(startMillis)
	rec := domain.RateRecord{
		Count:       int(count),
		WindowStart: windowStart,
		ResetAt:     windowStart.Add(cfg.Window),
	}

	return rec, allowed == 1, nil
}

func (s *RateLimitStore) key(limiter, identifier string) string {
	if s.cfg.KeyPrefix == "" {
		return fmt.Sprintf("%s:%s", limiter, identifier)
	}
	return fmt.Sprintf("%s:%s:%s", s.cfg.KeyPrefix, limiter, identifier)
}

var _ port.RateLimitStore = (*RateLimitStore)(nil)
