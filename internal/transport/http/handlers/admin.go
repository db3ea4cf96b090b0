package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/questforge/platform-guard/internal/core/port"
	"github.com/questforge/platform-guard/internal/usecase"
)

// AdminHandler exposes the operator surface: companion telemetry and response
// cache controls. Every route behind it requires the admin key.
type AdminHandler struct {
	metrics *usecase.MetricsService
	cache   port.ResponseCache
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(metrics *usecase.MetricsService, cache port.ResponseCache) *AdminHandler {
	return &AdminHandler{
		metrics: metrics,
		cache:   cache,
	}
}

// RegisterRoutes binds the admin routes. The write middlewares run ahead of
// every mutating route only; reads stay unthrottled.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, writeMiddlewares ...gin.HandlerFunc) {
	r.GET("/metrics/summary", h.metricsSummary)
	r.GET("/cache/stats", h.cacheStats)

	resetMetrics := append([]gin.HandlerFunc{}, writeMiddlewares...)
	r.POST("/metrics/reset", append(resetMetrics, h.resetMetrics)...)

	resetCacheStats := append([]gin.HandlerFunc{}, writeMiddlewares...)
	r.POST("/cache/stats/reset", append(resetCacheStats, h.resetCacheStats)...)

	clearCache := append([]gin.HandlerFunc{}, writeMiddlewares...)
	r.DELETE("/cache", append(clearCache, h.clearCache)...)
}

// MetricsSummary godoc
// @Summary Companion telemetry summary
// @Tags Admin
// @Produce json
// @Success 200 {object} MetricsSummaryResponse
// @Router /api/admin/metrics/summary [get]
func (h *AdminHandler) metricsSummary(c *gin.Context) {
	c.JSON(http.StatusOK, NewMetricsSummaryResponse(h.metrics.Summary()))
}

// ResetMetrics godoc
// @Summary Discard all companion telemetry aggregates
// @Tags Admin
// @Produce json
// @Success 200 {object} MessageResponse
// @Router /api/admin/metrics/reset [post]
func (h *AdminHandler) resetMetrics(c *gin.Context) {
	h.metrics.Reset()
	c.JSON(http.StatusOK, MessageResponse{Message: "metrics reset"})
}

// CacheStats godoc
// @Summary Response cache statistics
// @Tags Admin
// @Produce json
// @Success 200 {object} CacheStatsResponse
// @Router /api/admin/cache/stats [get]
func (h *AdminHandler) cacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, NewCacheStatsResponse(h.cache.Stats()))
}

// ResetCacheStats godoc
// @Summary Zero the cache hit and miss counters, keeping entries
// @Tags Admin
// @Produce json
// @Success 200 {object} MessageResponse
// @Router /api/admin/cache/stats/reset [post]
func (h *AdminHandler) resetCacheStats(c *gin.Context) {
	h.cache.ResetStats()
	c.JSON(http.StatusOK, MessageResponse{Message: "cache statistics reset"})
}

// ClearCache godoc
// @Summary Drop all cached companion replies, keeping counters
// @Tags Admin
// @Produce json
// @Success 200 {object} MessageResponse
// @Router /api/admin/cache [delete]
func (h *AdminHandler) clearCache(c *gin.Context) {
	h.cache.Clear()
	c.JSON(http.StatusOK, MessageResponse{Message: "cache cleared"})
}
