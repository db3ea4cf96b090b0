package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/questforge/platform-guard/internal/core/domain"
	"github.com/questforge/platform-guard/internal/core/port"
	"github.com/questforge/platform-guard/internal/usecase"
)

// IdentifierFunc extracts the identifier used to scope rate limits
// (for example the client IP or the authenticated user).
type IdentifierFunc func(*gin.Context) (string, bool)

// GuardRule binds a registered limiter name to an identifier strategy. A nil
// Identifier defaults to user-or-IP; rules whose identifier yields nothing are
// skipped for that request.
type GuardRule struct {
	Limiter    string
	Identifier IdentifierFunc
}

// RateLimiter turns rate limit decisions into HTTP semantics: quota headers
// on success, a 429 with retry guidance on denial.
type RateLimiter struct {
	limits  *usecase.RateLimitService
	events  port.EventPublisher
	logger  *zap.Logger
	denials *prometheus.CounterVec
	now     func() time.Time
}

// rateLimitedBody is the fixed JSON contract served on denial.
type rateLimitedBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NewRateLimiter builds a reusable rate limiter middleware helper. The event
// publisher may be nil when denial events are not wanted.
func NewRateLimiter(limits *usecase.RateLimitService, events port.EventPublisher, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RateLimiter{
		limits: limits,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// WithDenialCounter wires a Prometheus counter incremented per 429, labelled
// by limiter name.
func (rl *RateLimiter) WithDenialCounter(counter *prometheus.CounterVec) *RateLimiter {
	rl.denials = counter
	return rl
}

// ClientIPIdentifier scopes limits by client IP.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		if ip == "" {
			return "", false
		}
		return "ip:" + ip, true
	}
}

// UserIdentifier scopes limits by authenticated user and yields nothing for
// anonymous requests.
func UserIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		userID, ok := GetAuthenticatedUserID(c)
		if !ok || userID == "" {
			return "", false
		}
		return "user:" + userID, true
	}
}

// UserOrIPIdentifier prefers the authenticated user and falls back to the
// client IP for anonymous requests.
func UserOrIPIdentifier() IdentifierFunc {
	userFn := UserIdentifier()
	ipFn := ClientIPIdentifier()

	return func(c *gin.Context) (string, bool) {
		if identifier, ok := userFn(c); ok {
			return identifier, true
		}
		return ipFn(c)
	}
}

// Guard returns a Gin middleware enforcing the provided rules. On denial the
// wrapped handler never runs; on success the quota headers ride along with
// whatever response the handler produces.
func (rl *RateLimiter) Guard(rules ...GuardRule) gin.HandlerFunc {
	filtered := make([]GuardRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Limiter == "" {
			continue
		}
		if rule.Identifier == nil {
			rule.Identifier = UserOrIPIdentifier()
		}
		filtered = append(filtered, rule)
	}

	return func(c *gin.Context) {
		if len(filtered) == 0 || rl.limits == nil {
			c.Next()
			return
		}

		now := rl.now()
		var best *domain.RateDecision

		for _, rule := range filtered {
			identifier, ok := rule.Identifier(c)
			if !ok || identifier == "" {
				continue
			}

			decision, err := rl.limits.CheckAndConsume(c.Request.Context(), rule.Limiter, identifier)
			if err != nil {
				// The service already applied the failure policy and logged
				// the store outage. A degraded allow carries no usable quota
				// snapshot, so it contributes no headers.
				if decision.Allowed {
					continue
				}
				rl.applyHeaders(c, decision, now)
				rl.respondRateLimited(c, rule.Limiter, decision)
				return
			}

			if !decision.Allowed {
				rl.logger.Debug("request rate limited",
					zap.String("limiter", rule.Limiter),
					zap.String("path", c.Request.URL.Path),
				)
				rl.applyHeaders(c, decision, now)
				rl.publishExceeded(c, rule.Limiter, identifier, decision)
				rl.respondRateLimited(c, rule.Limiter, decision)
				return
			}

			if best == nil || replaceHeaderDecision(*best, decision) {
				snapshot := decision
				best = &snapshot
			}
		}

		if best != nil {
			rl.applyHeaders(c, *best, now)
		}

		c.Next()
	}
}

// replaceHeaderDecision picks the tightest quota for the response headers
// when several rules matched: fewest remaining requests wins, earliest reset
// breaks ties.
func replaceHeaderDecision(current, candidate domain.RateDecision) bool {
	if candidate.Remaining < current.Remaining {
		return true
	}
	if candidate.Remaining == current.Remaining && candidate.ResetAt.Before(current.ResetAt) {
		return true
	}
	return false
}

func (rl *RateLimiter) applyHeaders(c *gin.Context, decision domain.RateDecision, now time.Time) {
	headers := c.Writer.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(max(decision.Remaining, 0)))

	resetSeconds := 0
	if decision.ResetAt.After(now) {
		resetSeconds = int(math.Ceil(decision.ResetAt.Sub(now).Seconds()))
	}
	headers.Set("X-RateLimit-Reset", strconv.Itoa(resetSeconds))

	if !decision.Allowed {
		headers.Set("Retry-After", strconv.Itoa(retrySeconds(decision)))
	}
}

func (rl *RateLimiter) respondRateLimited(c *gin.Context, limiter string, decision domain.RateDecision) {
	if rl.denials != nil {
		rl.denials.WithLabelValues(limiter).Inc()
	}

	c.AbortWithStatusJSON(http.StatusTooManyRequests, rateLimitedBody{
		Error:   "Too many requests",
		Message: fmt.Sprintf("Too many requests. Try again in %d seconds.", retrySeconds(decision)),
	})
}

func (rl *RateLimiter) publishExceeded(c *gin.Context, limiter, identifier string, decision domain.RateDecision) {
	if rl.events == nil {
		return
	}

	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}

	event := domain.LimitExceededEvent{
		Limiter:    limiter,
		Identifier: identifier,
		Limit:      decision.Limit,
		RetryAfter: decision.RetryAfter,
		Path:       path,
		OccurredAt: rl.now(),
	}
	if traceID := GetTraceID(c); traceID != "" {
		event.Metadata = map[string]any{"trace_id": traceID}
	}

	if err := rl.events.PublishLimitExceeded(c.Request.Context(), event); err != nil {
		rl.logger.Warn("failed to publish limit exceeded event",
			zap.String("limiter", limiter),
			zap.Error(err),
		)
	}
}

func retrySeconds(decision domain.RateDecision) int {
	seconds := int(math.Ceil(decision.RetryAfter.Seconds()))
	if seconds < 0 {
		return 0
	}
	return seconds
}
