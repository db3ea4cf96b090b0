package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/questforge/platform-guard/internal/infra/security"
)

// AdminKeyHeader carries the operator key for the admin surface.
const AdminKeyHeader = "X-Admin-Key"

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// newErrorResponse creates an error response with trace ID
func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// bearerToken extracts the token from an Authorization header, if any.
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}

	return token, true
}

// OptionalAuth resolves the caller identity when a valid bearer token is
// present so user-scoped limiters can see it. Anything missing or invalid
// leaves the request anonymous; enforcement belongs to RequireAuth.
func OptionalAuth(verifier *security.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			c.Next()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		GetRequestContext(c).UserID = claims.UserID

		c.Next()
	}
}

// RequireAuth validates the Authorization header and extracts the caller
// identity, rejecting anonymous or invalid requests.
func RequireAuth(verifier *security.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing authorization header"))
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid authorization format: expected 'Bearer <token>'"))
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			switch {
			case errors.Is(err, security.ErrTokenExpired):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "access token expired"))
			default:
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "invalid access token"))
			}
			return
		}

		c.Set(UserIDKey, claims.UserID)
		GetRequestContext(c).UserID = claims.UserID

		c.Next()
	}
}

// RequireAdminKey gates the admin surface behind a pre-shared key verified
// against its Argon2 hash. An empty hash disables the surface entirely.
func RequireAdminKey(adminKeyHash string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		if adminKeyHash == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				newErrorResponse(c, "admin interface disabled"))
			return
		}

		key := strings.TrimSpace(c.GetHeader(AdminKeyHeader))
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing admin key"))
			return
		}

		ok, err := security.VerifyAdminKey(key, adminKeyHash)
		if err != nil {
			logger.Error("admin key verification failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				newErrorResponse(c, "admin key verification failed"))
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "invalid admin key"))
			return
		}

		c.Next()
	}
}

// GetAuthenticatedUserID retrieves the user ID from context (helper for handlers)
func GetAuthenticatedUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return "", false
	}

	if id, ok := userID.(string); ok {
		return id, true
	}

	return "", false
}
