package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/questforge/platform-guard/internal/core/domain"
	"github.com/questforge/platform-guard/internal/core/port"
	"github.com/questforge/platform-guard/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, subject string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("subject", subject),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishLimitExceeded logs guard.limit.exceeded events. Addresses are masked
// because this payload lands in logs, not the analytics bus.
func (p *StubPublisher) PublishLimitExceeded(_ context.Context, event domain.LimitExceededEvent) error {
	masked := logger.MaskIdentifier(event.Identifier)
	payload := map[string]any{
		"limiter":             event.Limiter,
		"identifier":          masked,
		"limit":               event.Limit,
		"retry_after_seconds": int(event.RetryAfter.Seconds()),
		"path":                event.Path,
		"occurred_at":         event.OccurredAt,
		"metadata":            event.Metadata,
	}
	p.logEvent("guard.limit.exceeded", masked, event.OccurredAt, payload)
	return nil
}

// PublishCompanionServed logs guard.companion.served events.
func (p *StubPublisher) PublishCompanionServed(_ context.Context, event domain.CompanionServedEvent) error {
	payload := map[string]any{
		"category":         event.Category,
		"language":         event.Language,
		"cache_hit":        event.CacheHit,
		"confidence":       event.Confidence,
		"response_time_ms": float64(event.ResponseTime) / float64(time.Millisecond),
		"served_at":        event.ServedAt,
		"metadata":         event.Metadata,
	}
	p.logEvent("guard.companion.served", event.Category, event.ServedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
