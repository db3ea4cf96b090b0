package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/questforge/platform-guard/internal/core/domain"
	"github.com/questforge/platform-guard/internal/core/port"
)

const (
	defaultLanguage = "en"

	routedBaseConfidence    = 0.6
	routedPerHitConfidence  = 0.15
	fallbackRouteConfidence = 0.35
	explicitConfidence      = 1.0
)

// routingRules map query keywords to categories. Order matters: on a tie the
// earlier rule wins, so the list is deterministic regardless of input.
var routingRules = []struct {
	category string
	keywords []string
}{
	{domain.CategoryQuestHelp, []string{"quest", "mission", "objective", "walkthrough", "reward"}},
	{domain.CategoryTaskHelp, []string{"task", "assignment", "submit", "deadline", "step"}},
	{domain.CategoryNavigation, []string{"where", "find", "page", "menu", "navigate", "profile"}},
	{domain.CategoryFeedback, []string{"feedback", "suggest", "bug", "report", "improve"}},
}

// CompanionService answers player queries through the configured agent, with a
// response cache in front and metrics plus served events behind.
type CompanionService struct {
	agent   port.CompanionAgent
	cache   port.ResponseCache
	metrics *MetricsService
	events  port.EventPublisher
	logger  *zap.Logger
	now     func() time.Time
}

// NewCompanionService wires the companion path together.
func NewCompanionService(
	agent port.CompanionAgent,
	cache port.ResponseCache,
	metrics *MetricsService,
	events port.EventPublisher,
	logger *zap.Logger,
) *CompanionService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CompanionService{
		agent:   agent,
		cache:   cache,
		metrics: metrics,
		events:  events,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (s *CompanionService) WithClock(now func() time.Time) *CompanionService {
	if now != nil {
		s.now = now
	}
	return s
}

// Ask resolves one companion query: route it to a category, serve from cache
// when possible, otherwise consult the agent and store the reply. Every
// completed request is folded into the metrics aggregates and announced as a
// served event; event publishing is best-effort and never fails the request.
func (s *CompanionService) Ask(ctx context.Context, query domain.CompanionQuery) (domain.CompanionReply, error) {
	started := s.now()

	if query.Language == "" {
		query.Language = defaultLanguage
	}

	confidence := explicitConfidence
	if !knownCategory(query.Category) {
		query.Category, confidence = routeQuery(query)
	}

	if cached, ok := s.cache.Get(query); ok {
		cached.Cached = true
		s.finish(ctx, query, cached, confidence, started, nil)
		return cached, nil
	}

	reply, err := s.agent.Answer(ctx, query)
	if err != nil {
		s.metrics.Record(domain.RequestSample{
			Category:     query.Category,
			Language:     query.Language,
			ResponseTime: s.now().Sub(started),
			Err:          err,
		})
		return domain.CompanionReply{}, fmt.Errorf("companion answer: %w", err)
	}

	reply.Category = query.Category
	reply.Language = query.Language
	reply.Confidence = confidence
	reply.Cached = false

	if !reply.IsError {
		s.cache.Set(query, reply)
	}

	s.finish(ctx, query, reply, confidence, started, nil)
	return reply, nil
}

// finish records metrics and publishes the served event for a completed query.
func (s *CompanionService) finish(ctx context.Context, query domain.CompanionQuery, reply domain.CompanionReply, confidence float64, started time.Time, err error) {
	elapsed := s.now().Sub(started)

	s.metrics.Record(domain.RequestSample{
		Category:     query.Category,
		Language:     query.Language,
		ResponseTime: elapsed,
		Confidence:   &confidence,
		Err:          err,
	})

	if s.events == nil {
		return
	}

	event := domain.CompanionServedEvent{
		Category:     query.Category,
		Language:     query.Language,
		CacheHit:     reply.Cached,
		Confidence:   confidence,
		ResponseTime: elapsed,
		ServedAt:     s.now(),
	}
	if publishErr := s.events.PublishCompanionServed(ctx, event); publishErr != nil {
		s.logger.Warn("failed to publish companion served event", zap.Error(publishErr))
	}
}

// routeQuery scores the query text against the routing rules and returns the
// best category with a confidence estimate. Text with no keyword hits falls
// back to the general category at low confidence.
func routeQuery(query domain.CompanionQuery) (string, float64) {
	text := query.NormalizedText()

	best := domain.CategoryGeneral
	bestHits := 0
	for _, rule := range routingRules {
		hits := 0
		for _, keyword := range rule.keywords {
			if strings.Contains(text, keyword) {
				hits++
			}
		}
		if hits > bestHits {
			best = rule.category
			bestHits = hits
		}
	}

	if bestHits == 0 {
		return domain.CategoryGeneral, fallbackRouteConfidence
	}

	confidence := routedBaseConfidence + float64(bestHits)*routedPerHitConfidence
	if confidence > 1 {
		confidence = 1
	}

	return best, confidence
}

func knownCategory(category string) bool {
	for _, known := range domain.KnownCategories() {
		if category == known {
			return true
		}
	}
	return false
}
