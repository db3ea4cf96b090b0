package port

import (
	"context"

	"github.com/questforge/platform-guard/internal/core/domain"
)

// EventPublisher publishes governance events to the analytics bus.
type EventPublisher interface {
	PublishLimitExceeded(ctx context.Context, event domain.LimitExceededEvent) error
	PublishCompanionServed(ctx context.Context, event domain.CompanionServedEvent) error
}
