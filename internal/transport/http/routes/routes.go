package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/questforge/platform-guard/internal/core/port"
	"github.com/questforge/platform-guard/internal/infra/config"
	"github.com/questforge/platform-guard/internal/infra/security"
	"github.com/questforge/platform-guard/internal/transport/http/handlers"
	"github.com/questforge/platform-guard/internal/transport/http/middleware"
	"github.com/questforge/platform-guard/internal/usecase"
)

// Limiter names shared between preset registration and route guards.
const (
	LimiterAuth        = "auth"
	LimiterAdminWrite  = "admin_write"
	LimiterComments    = "comments"
	LimiterVotes       = "votes"
	LimiterVideoSearch = "video_search"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Companion *usecase.CompanionService
	Metrics   *usecase.MetricsService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config        *config.AppConfig
	Logger        *zap.Logger
	RateLimiter   *middleware.RateLimiter
	HTTPMetrics   *middleware.HTTPMetrics
	Services      ServiceSet
	TokenVerifier *security.TokenVerifier
	ResponseCache port.ResponseCache
	Videos        port.VideoSearcher
	Database      DatabaseChecker
	Cache         CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.App.CORSAllowedOrigins))

	if deps.HTTPMetrics != nil {
		r.Use(deps.HTTPMetrics.Handler())
	}

	optionalAuth := middleware.OptionalAuth(deps.TokenVerifier)
	requireAuth := middleware.RequireAuth(deps.TokenVerifier)

	healthOptions := make([]handlers.HealthOption, 0, 2)

	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	platformHandler := handlers.NewPlatformHandler(deps.TokenVerifier, deps.Videos, deps.Logger)

	api := r.Group("/api")
	{
		authGroup := api.Group("/auth")
		login := guardFor(deps, LimiterAuth, middleware.ClientIPIdentifier())
		authGroup.POST("/login", append(login, platformHandler.Login)...)

		companionHandler := handlers.NewCompanionHandler(deps.Services.Companion)
		companionHandler.RegisterRoutes(api.Group("/companion"))

		// Comment-style writes count per authenticated user, so identity
		// resolution has to run ahead of the guard.
		reply := []gin.HandlerFunc{requireAuth}
		reply = append(reply, guardFor(deps, LimiterComments, middleware.UserIdentifier())...)
		api.POST("/questions/:id/replies", append(reply, platformHandler.CreateReply)...)

		vote := []gin.HandlerFunc{optionalAuth}
		vote = append(vote, guardFor(deps, LimiterVotes, middleware.UserOrIPIdentifier())...)
		api.POST("/replies/:id/votes", append(vote, platformHandler.VoteReply)...)

		search := []gin.HandlerFunc{optionalAuth}
		search = append(search, guardFor(deps, LimiterVideoSearch, middleware.UserOrIPIdentifier())...)
		api.GET("/videos/search", append(search, platformHandler.SearchVideos)...)

		adminGroup := api.Group("/admin")
		adminGroup.Use(middleware.RequireAdminKey(deps.Config.Auth.AdminKeyHash, deps.Logger))

		adminHandler := handlers.NewAdminHandler(deps.Services.Metrics, deps.ResponseCache)
		adminHandler.RegisterRoutes(adminGroup, guardFor(deps, LimiterAdminWrite, middleware.ClientIPIdentifier())...)
	}

	return r
}

func guardFor(deps Dependencies, limiter string, identifier middleware.IdentifierFunc) []gin.HandlerFunc {
	if deps.RateLimiter == nil {
		return nil
	}

	rule := middleware.GuardRule{Limiter: limiter, Identifier: identifier}
	return []gin.HandlerFunc{deps.RateLimiter.Guard(rule)}
}
