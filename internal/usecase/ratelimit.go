package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/questforge/platform-guard/internal/core/domain"
	"github.com/questforge/platform-guard/internal/core/port"
)

// RateLimitService owns the registry of named limiter configurations and runs
// check-and-consume decisions against the configured store. The store may be
// swapped (memory, Redis, Postgres) without touching the decision logic here.
type RateLimitService struct {
	store   port.RateLimitStore
	policy  domain.FailurePolicy
	logger  *zap.Logger
	now     func() time.Time
	configs map[string]domain.LimiterConfig
}

// NewRateLimitService constructs the service around a store and failure policy.
func NewRateLimitService(store port.RateLimitStore, policy domain.FailurePolicy, logger *zap.Logger) *RateLimitService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RateLimitService{
		store:   store,
		policy:  policy,
		logger:  logger,
		now:     time.Now,
		configs: make(map[string]domain.LimiterConfig),
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (s *RateLimitService) WithClock(now func() time.Time) *RateLimitService {
	if now != nil {
		s.now = now
	}
	return s
}

// Register validates and stores a limiter configuration. Registration happens
// once at startup; a zero window or zero max is rejected rather than silently
// tolerated, and duplicate names are treated as a wiring mistake.
func (s *RateLimitService) Register(cfg domain.LimiterConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if _, exists := s.configs[cfg.Name]; exists {
		return fmt.Errorf("%w: %q registered twice", domain.ErrInvalidLimiterConfig, cfg.Name)
	}

	s.configs[cfg.Name] = cfg
	return nil
}

// Config returns the registered configuration for the given limiter name.
func (s *RateLimitService) Config(name string) (domain.LimiterConfig, error) {
	cfg, ok := s.configs[name]
	if !ok {
		return domain.LimiterConfig{}, fmt.Errorf("%w: %q", domain.ErrLimiterNotRegistered, name)
	}
	return cfg, nil
}

// Policy reports the configured behavior for store outages.
func (s *RateLimitService) Policy() domain.FailurePolicy {
	return s.policy
}

// CheckAndConsume evaluates the named limiter for one identifier. When the
// store cannot be reached the configured failure policy decides the outcome:
// fail-open admits the request and logs a warning, fail-closed denies it with
// the full window as the retry hint. The returned error is non-nil only for
// store failures, so callers can distinguish a degraded decision from a
// regular one.
func (s *RateLimitService) CheckAndConsume(ctx context.Context, limiterName, identifier string) (domain.RateDecision, error) {
	cfg, err := s.Config(limiterName)
	if err != nil {
		return domain.RateDecision{}, err
	}

	now := s.now()

	rec, allowed, err := s.store.Consume(ctx, identifier, cfg, now)
	if err != nil {
		if s.policy.FailsOpen() {
			s.logger.Warn("rate limit store unavailable, failing open",
				zap.String("limiter", cfg.Name),
				zap.Error(err),
			)
			return domain.RateDecision{Allowed: true, Limit: cfg.MaxRequests}, fmt.Errorf("consume %s: %w", cfg.Name, err)
		}

		s.logger.Warn("rate limit store unavailable, failing closed",
			zap.String("limiter", cfg.Name),
			zap.Error(err),
		)
		return domain.RateDecision{
			Allowed:    false,
			Limit:      cfg.MaxRequests,
			ResetAt:    now.Add(cfg.Window),
			RetryAfter: cfg.Window,
		}, fmt.Errorf("consume %s: %w", cfg.Name, err)
	}

	return domain.NewRateDecision(rec, cfg, allowed, now), nil
}
