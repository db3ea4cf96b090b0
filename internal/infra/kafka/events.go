package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/questforge/platform-guard/internal/core/domain"
	"github.com/questforge/platform-guard/internal/core/port"
	"github.com/questforge/platform-guard/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	Subject   string           `json:"subject,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, subject string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		Subject:   subject,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishLimitExceeded publishes guard.limit.exceeded events.
func (p *EventPublisher) PublishLimitExceeded(ctx context.Context, event domain.LimitExceededEvent) error {
	payload := struct {
		Limiter           string         `json:"limiter"`
		Identifier        string         `json:"identifier"`
		Limit             int            `json:"limit"`
		RetryAfterSeconds int            `json:"retry_after_seconds"`
		Path              string         `json:"path,omitempty"`
		OccurredAt        time.Time      `json:"occurred_at"`
		Metadata          map[string]any `json:"metadata,omitempty"`
	}{
		Limiter:           event.Limiter,
		Identifier:        event.Identifier,
		Limit:             event.Limit,
		RetryAfterSeconds: int(event.RetryAfter.Seconds()),
		Path:              event.Path,
		OccurredAt:        event.OccurredAt.UTC(),
		Metadata:          event.Metadata,
	}

	return p.publish(ctx, event.EventID, "guard.limit.exceeded", event.Identifier, event.OccurredAt, payload)
}

// PublishCompanionServed publishes guard.companion.served events.
func (p *EventPublisher) PublishCompanionServed(ctx context.Context, event domain.CompanionServedEvent) error {
	payload := struct {
		Category       string         `json:"category"`
		Language       string         `json:"language"`
		CacheHit       bool           `json:"cache_hit"`
		Confidence     float64        `json:"confidence"`
		ResponseTimeMs float64        `json:"response_time_ms"`
		ServedAt       time.Time      `json:"served_at"`
		Metadata       map[string]any `json:"metadata,omitempty"`
	}{
		Category:       event.Category,
		Language:       event.Language,
		CacheHit:       event.CacheHit,
		Confidence:     event.Confidence,
		ResponseTimeMs: float64(event.ResponseTime) / float64(time.Millisecond),
		ServedAt:       event.ServedAt.UTC(),
		Metadata:       event.Metadata,
	}

	return p.publish(ctx, event.EventID, "guard.companion.served", event.Category, event.ServedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
