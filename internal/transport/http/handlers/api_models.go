package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/questforge/platform-guard/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadyResponse reports readiness of downstream dependencies.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the minted access token.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// CompanionAskRequest is a player query for the companion agent.
type CompanionAskRequest struct {
	Message  string `json:"message" binding:"required"`
	Category string `json:"category"`
	Language string `json:"language"`
}

// CompanionAskResponse carries the companion's reply.
type CompanionAskResponse struct {
	Reply      string  `json:"reply"`
	Category   string  `json:"category"`
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
	Cached     bool    `json:"cached"`
}

// ReplyCreateRequest is the payload for posting a reply to a question.
type ReplyCreateRequest struct {
	Body string `json:"body" binding:"required"`
}

// ReplyResponse describes a stored reply.
type ReplyResponse struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"question_id"`
	AuthorID   string    `json:"author_id"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// VoteRequest casts a vote on a reply.
type VoteRequest struct {
	Direction string `json:"direction" binding:"required,oneof=up down"`
}

// VoteResponse acknowledges a recorded vote.
type VoteResponse struct {
	ReplyID   string `json:"reply_id"`
	Direction string `json:"direction"`
}

// VideoPayload is one search result.
type VideoPayload struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Channel   string `json:"channel"`
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Duration  string `json:"duration,omitempty"`
}

// VideoSearchResponse wraps video search results.
type VideoSearchResponse struct {
	Query   string         `json:"query"`
	Results []VideoPayload `json:"results"`
}

// NewVideoSearchResponse maps domain results into the API shape.
func NewVideoSearchResponse(query string, videos []domain.Video) VideoSearchResponse {
	results := make([]VideoPayload, 0, len(videos))
	for _, v := range videos {
		results = append(results, VideoPayload{
			ID:        v.ID,
			Title:     v.Title,
			Channel:   v.Channel,
			URL:       v.URL,
			Thumbnail: v.Thumbnail,
			Duration:  v.Duration,
		})
	}

	return VideoSearchResponse{Query: query, Results: results}
}

// CacheStatsResponse reports response cache effectiveness.
type CacheStatsResponse struct {
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	Size      int     `json:"size"`
	HitRate   float64 `json:"hit_rate"`
}

// NewCacheStatsResponse maps domain cache stats into the API shape.
func NewCacheStatsResponse(stats domain.CacheStats) CacheStatsResponse {
	return CacheStatsResponse{
		Hits:      stats.Hits,
		Misses:    stats.Misses,
		Evictions: stats.Evictions,
		Size:      stats.Size,
		HitRate:   stats.HitRate,
	}
}

// RequestErrorPayload is one retained companion error.
type RequestErrorPayload struct {
	Category   string    `json:"category"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// MetricsSummaryResponse is the aggregated companion telemetry view.
type MetricsSummaryResponse struct {
	TotalRequests     uint64                `json:"total_requests"`
	TotalErrors       uint64                `json:"total_errors"`
	ErrorRate         float64               `json:"error_rate"`
	AvgResponseTimeMs float64               `json:"avg_response_time_ms"`
	P50ResponseTimeMs float64               `json:"p50_response_time_ms"`
	P95ResponseTimeMs float64               `json:"p95_response_time_ms"`
	P99ResponseTimeMs float64               `json:"p99_response_time_ms"`
	AvgConfidence     float64               `json:"avg_confidence"`
	CategoryUsage     map[string]uint64     `json:"category_usage"`
	LanguageUsage     map[string]uint64     `json:"language_usage"`
	RecentErrors      []RequestErrorPayload `json:"recent_errors"`
	GeneratedAt       time.Time             `json:"generated_at"`
}

// NewMetricsSummaryResponse maps a domain summary into the API shape.
func NewMetricsSummaryResponse(summary domain.MetricsSummary) MetricsSummaryResponse {
	recent := make([]RequestErrorPayload, 0, len(summary.RecentErrors))
	for _, re := range summary.RecentErrors {
		recent = append(recent, RequestErrorPayload{
			Category:   re.Category,
			Message:    re.Message,
			OccurredAt: re.OccurredAt,
		})
	}

	return MetricsSummaryResponse{
		TotalRequests:     summary.TotalRequests,
		TotalErrors:       summary.TotalErrors,
		ErrorRate:         summary.ErrorRate,
		AvgResponseTimeMs: durationMs(summary.AvgResponseTime),
		P50ResponseTimeMs: durationMs(summary.P50ResponseTime),
		P95ResponseTimeMs: durationMs(summary.P95ResponseTime),
		P99ResponseTimeMs: durationMs(summary.P99ResponseTime),
		AvgConfidence:     summary.AvgConfidence,
		CategoryUsage:     summary.CategoryUsage,
		LanguageUsage:     summary.LanguageUsage,
		RecentErrors:      recent,
		GeneratedAt:       summary.GeneratedAt,
	}
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
