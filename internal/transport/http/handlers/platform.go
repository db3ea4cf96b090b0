package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/questforge/platform-guard/internal/core/port"
	"github.com/questforge/platform-guard/internal/infra/logger"
	"github.com/questforge/platform-guard/internal/infra/security"
	"github.com/questforge/platform-guard/internal/transport/http/middleware"
)

const (
	accessTokenTTL     = time.Hour
	defaultSearchLimit = 10
	maxSearchLimit     = 25
)

// PlatformHandler exposes the guarded platform endpoints: login, replies,
// votes, and video search. Persistence for the platform entities lives
// upstream; these handlers exercise the governance layer in front of it.
type PlatformHandler struct {
	tokens *security.TokenVerifier
	videos port.VideoSearcher
	logger *zap.Logger
}

// NewPlatformHandler constructs PlatformHandler.
func NewPlatformHandler(tokens *security.TokenVerifier, videos port.VideoSearcher, logger *zap.Logger) *PlatformHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PlatformHandler{
		tokens: tokens,
		videos: videos,
		logger: logger,
	}
}

// Login godoc
// @Summary Exchange credentials for an access token
// @Description Mints the per-user token that scopes user-level limiters. Credential verification is delegated upstream.
// @Tags Platform
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login payload"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/auth/login [post]
func (h *PlatformHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	token, err := h.tokens.Issue(req.Username, accessTokenTTL)
	if err != nil {
		h.logger.Error("failed to issue access token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to issue access token"))
		return
	}

	reqCtx := middleware.GetRequestContext(c)
	h.logger.Info("access token issued",
		zap.String("username", req.Username),
		zap.String("client_ip", logger.MaskIP(reqCtx.IP)),
		zap.String("user_agent", reqCtx.UserAgent),
	)

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(accessTokenTTL.Seconds()),
	})
}

// CreateReply godoc
// @Summary Post a reply to a question
// @Tags Platform
// @Accept json
// @Produce json
// @Param id path string true "Question ID"
// @Param request body ReplyCreateRequest true "Reply payload"
// @Success 201 {object} ReplyResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/questions/{id}/replies [post]
func (h *PlatformHandler) CreateReply(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ReplyCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid reply payload"))
		return
	}

	c.JSON(http.StatusCreated, ReplyResponse{
		ID:         uuid.NewString(),
		QuestionID: c.Param("id"),
		AuthorID:   userID,
		Body:       req.Body,
		CreatedAt:  time.Now().UTC(),
	})
}

// VoteReply godoc
// @Summary Vote on a reply
// @Tags Platform
// @Accept json
// @Produce json
// @Param id path string true "Reply ID"
// @Param request body VoteRequest true "Vote payload"
// @Success 200 {object} VoteResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/replies/{id}/votes [post]
func (h *PlatformHandler) VoteReply(c *gin.Context) {
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid vote payload"))
		return
	}

	c.JSON(http.StatusOK, VoteResponse{
		ReplyID:   c.Param("id"),
		Direction: req.Direction,
	})
}

// SearchVideos godoc
// @Summary Search learning videos
// @Tags Platform
// @Produce json
// @Param q query string true "Search query"
// @Param limit query int false "Maximum results"
// @Success 200 {object} VideoSearchResponse
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Failure 504 {object} ErrorResponse
// @Router /api/videos/search [get]
func (h *PlatformHandler) SearchVideos(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "missing search query"))
		return
	}

	limit := defaultSearchLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid limit parameter"))
			return
		}
		limit = min(parsed, maxSearchLimit)
	}

	videos, err := h.videos.Search(c.Request.Context(), query, limit)
	if err != nil {
		logger.WithRequestID(c.Request.Context(), h.logger).Warn("video search failed",
			zap.String("query", query), zap.Error(err))
		RespondWithMappedError(c, err, nil, http.StatusBadGateway, "video search unavailable")
		return
	}

	c.JSON(http.StatusOK, NewVideoSearchResponse(query, videos))
}
