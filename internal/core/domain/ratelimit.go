package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidLimiterConfig signals a limiter registration with unusable parameters.
var ErrInvalidLimiterConfig = errors.New("rate limit: invalid limiter config")

// ErrLimiterNotRegistered indicates a guarded route referenced an unknown limiter name.
var ErrLimiterNotRegistered = errors.New("rate limit: limiter not registered")

// LimiterConfig describes one named fixed-window limit. Instances are treated
// as immutable once registered.
type LimiterConfig struct {
	Name        string
	Window      time.Duration
	MaxRequests int
}

// Validate rejects configurations that could never admit traffic or would
// disable the limit entirely. Registration must fail on any error returned here.
func (c LimiterConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidLimiterConfig)
	}
	if c.Window <= 0 {
		return fmt.Errorf("%w: %q window must be positive", ErrInvalidLimiterConfig, c.Name)
	}
	if c.MaxRequests <= 0 {
		return fmt.Errorf("%w: %q max requests must be positive", ErrInvalidLimiterConfig, c.Name)
	}
	return nil
}

// RateRecord tracks consumption for one (identifier, limiter) pair. A record is
// created lazily on first sight of a key and reinitialised in place when its
// window elapses; records are never removed.
type RateRecord struct {
	Count       int
	WindowStart time.Time
	ResetAt     time.Time
}

// Expired reports whether the record's window has elapsed at the given instant.
func (r RateRecord) Expired(now time.Time) bool {
	return !now.Before(r.ResetAt)
}

// RateDecision is the outcome of a single check-and-consume evaluation.
type RateDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// NewRateDecision derives the caller-facing decision from the record state left
// behind by a store's consume operation.
func NewRateDecision(rec RateRecord, cfg LimiterConfig, allowed bool, now time.Time) RateDecision {
	decision := RateDecision{
		Allowed: allowed,
		Limit:   cfg.MaxRequests,
		ResetAt: rec.ResetAt,
	}

	if allowed {
		decision.Remaining = cfg.MaxRequests - rec.Count
		if decision.Remaining < 0 {
			decision.Remaining = 0
		}
		return decision
	}

	decision.RetryAfter = rec.ResetAt.Sub(now)
	if decision.RetryAfter < 0 {
		decision.RetryAfter = 0
	}
	return decision
}
