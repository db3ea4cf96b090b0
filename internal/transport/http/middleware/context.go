package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// TraceIDHeader carries the platform-wide correlation ID. Inbound values
	// are honoured so one trace spans every service behind the edge.
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey is the gin context key holding the trace ID.
	TraceIDKey = "trace_id"
	// UserIDKey is the gin context key holding the authenticated caller ID.
	UserIDKey = "user_id"

	requestContextKey = "request_context"
)

// RequestContext carries the caller facts the governance layer decides on.
// EnrichContext seeds it, auth fills in UserID once a token verifies.
type RequestContext struct {
	TraceID   string
	UserID    string
	IP        string
	UserAgent string
}

// EnrichContext seeds the per-request correlation state. It runs ahead of
// auth and the limiters so every later decision, log line, and published
// event shares one trace ID.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		c.Set(requestContextKey, &RequestContext{
			TraceID:   traceID,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})

		c.Next()
	}
}

// GetTraceID returns the request's trace ID, or "" outside EnrichContext.
func GetTraceID(c *gin.Context) string {
	if value, ok := c.Get(TraceIDKey); ok {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return ""
}

// GetRequestContext returns the enriched caller state. A zero value comes
// back when EnrichContext did not run, so callers need no nil checks.
func GetRequestContext(c *gin.Context) *RequestContext {
	if value, ok := c.Get(requestContextKey); ok {
		if reqCtx, ok := value.(*RequestContext); ok {
			return reqCtx
		}
	}
	return &RequestContext{}
}
