package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/questforge/platform-guard/internal/core/domain"
	"github.com/questforge/platform-guard/internal/usecase"
)

// CompanionHandler exposes the AI companion query endpoint.
type CompanionHandler struct {
	companion *usecase.CompanionService
}

// NewCompanionHandler constructs CompanionHandler.
func NewCompanionHandler(companion *usecase.CompanionService) *CompanionHandler {
	return &CompanionHandler{companion: companion}
}

// RegisterRoutes binds companion routes, applying optional middleware ahead of handlers.
func (h *CompanionHandler) RegisterRoutes(r *gin.RouterGroup, askMiddlewares ...gin.HandlerFunc) {
	chain := append([]gin.HandlerFunc{}, askMiddlewares...)
	chain = append(chain, h.ask)
	r.POST("/ask", chain...)
}

// Ask godoc
// @Summary Ask the game companion
// @Description Routes the player's question to a category and answers it, serving repeated questions from cache.
// @Tags Companion
// @Accept json
// @Produce json
// @Param request body CompanionAskRequest true "Companion query payload"
// @Success 200 {object} CompanionAskResponse
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Failure 504 {object} ErrorResponse
// @Router /api/companion/ask [post]
func (h *CompanionHandler) ask(c *gin.Context) {
	var req CompanionAskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid companion query payload"))
		return
	}

	reply, err := h.companion.Ask(c.Request.Context(), domain.CompanionQuery{
		Text:     req.Message,
		Category: req.Category,
		Language: req.Language,
	})
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusBadGateway, "companion agent unavailable")
		return
	}

	c.JSON(http.StatusOK, CompanionAskResponse{
		Reply:      reply.Reply,
		Category:   reply.Category,
		Language:   reply.Language,
		Confidence: reply.Confidence,
		Cached:     reply.Cached,
	})
}
