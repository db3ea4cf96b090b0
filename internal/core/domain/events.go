package domain

import "time"

// LimitExceededEvent represents the payload for guard.limit.exceeded messages.
type LimitExceededEvent struct {
	EventID    string
	Limiter    string
	Identifier string
	Limit      int
	RetryAfter time.Duration
	Path       string
	OccurredAt time.Time
	Metadata   map[string]any
}

// CompanionServedEvent represents the payload for guard.companion.served messages.
type CompanionServedEvent struct {
	EventID      string
	Category     string
	Language     string
	CacheHit     bool
	Confidence   float64
	ResponseTime time.Duration
	ServedAt     time.Time
	Metadata     map[string]any
}
