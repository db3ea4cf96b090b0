package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/questforge/platform-guard/internal/core/domain"
	"github.com/questforge/platform-guard/internal/core/port"
	companioninfra "github.com/questforge/platform-guard/internal/infra/companion"
	"github.com/questforge/platform-guard/internal/infra/config"
	"github.com/questforge/platform-guard/internal/infra/database"
	kafkainfra "github.com/questforge/platform-guard/internal/infra/kafka"
	"github.com/questforge/platform-guard/internal/infra/logger"
	"github.com/questforge/platform-guard/internal/infra/media"
	redisinfra "github.com/questforge/platform-guard/internal/infra/redis"
	"github.com/questforge/platform-guard/internal/infra/security"
	"github.com/questforge/platform-guard/internal/infra/telemetry"
	"github.com/questforge/platform-guard/internal/repository/memory"
	postgresrepo "github.com/questforge/platform-guard/internal/repository/postgres"
	redisrepo "github.com/questforge/platform-guard/internal/repository/redis"
	"github.com/questforge/platform-guard/internal/transport/http/middleware"
	"github.com/questforge/platform-guard/internal/transport/http/routes"
	"github.com/questforge/platform-guard/internal/usecase"
)

type Application struct {
	cfg       *config.AppConfig
	engine    *gin.Engine
	logger    *zap.Logger
	telemetry *telemetry.Provider
	pool      *pgxpool.Pool
	redis     *redisinfra.Client
	producer  *kafkainfra.Producer
	metrics   *usecase.MetricsService
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	tel, err := telemetry.Attach(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	var (
		pool        *pgxpool.Pool
		redisClient *redisinfra.Client
		store       port.RateLimitStore
	)

	switch cfg.RateLimit.Store {
	case "", "memory":
		store = memory.NewRateLimitStore()
		log.Info("rate limit store initialized", zap.String("backend", "memory"))
	case "redis":
		redisClient, err = redisinfra.NewClient(cfg.Redis, log)
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		store = redisrepo.NewRateLimitStore(redisClient.Client(), redisrepo.FixedWindowConfig{
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		log.Info("rate limit store initialized", zap.String("backend", "redis"))
	case "postgres":
		pool, err = database.NewPostgresPool(ctx, cfg.Postgres, log)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		pgStore := postgresrepo.NewRateLimitStore(pool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ensure rate limit schema: %w", err)
		}
		store = pgStore
		log.Info("rate limit store initialized", zap.String("backend", "postgres"))
	default:
		return nil, fmt.Errorf("unknown rate limit store backend %q", cfg.RateLimit.Store)
	}

	// Initialize Kafka event publisher
	var (
		producer       *kafkainfra.Producer
		eventPublisher port.EventPublisher
	)
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			producer = nil
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	limits := usecase.NewRateLimitService(store, domain.ParseFailurePolicy(cfg.RateLimit.FailurePolicy), log)
	presets := []struct {
		name     string
		settings config.LimiterSettings
	}{
		{routes.LimiterAuth, cfg.RateLimit.Auth},
		{routes.LimiterAdminWrite, cfg.RateLimit.AdminWrite},
		{routes.LimiterComments, cfg.RateLimit.Comments},
		{routes.LimiterVotes, cfg.RateLimit.Votes},
		{routes.LimiterVideoSearch, cfg.RateLimit.VideoSearch},
	}
	for _, preset := range presets {
		if err := limits.Register(domain.LimiterConfig{
			Name:        preset.name,
			Window:      preset.settings.Window,
			MaxRequests: preset.settings.MaxRequests,
		}); err != nil {
			return nil, fmt.Errorf("register limiter %q: %w", preset.name, err)
		}
	}

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	rateLimiter := middleware.NewRateLimiter(limits, eventPublisher, log).
		WithDenialCounter(httpMetrics.RateLimited)

	responseCache := memory.NewResponseCache(memory.ResponseCacheConfig{
		TTL:                 cfg.Cache.TTL,
		Capacity:            cfg.Cache.Capacity,
		CacheableCategories: cfg.Cache.CacheableCategories,
	})

	metricsService := usecase.NewMetricsService(usecase.MetricsConfig{
		ErrorHistorySize: cfg.Metrics.ErrorHistorySize,
		SampleBufferSize: cfg.Metrics.SampleBufferSize,
		FlushInterval:    cfg.Metrics.FlushInterval,
	}, log)

	companionService := usecase.NewCompanionService(
		companioninfra.NewScriptedAgent(),
		responseCache,
		metricsService,
		eventPublisher,
		log,
	)

	var videos port.VideoSearcher
	if cfg.Media.YouTubeAPIKey != "" {
		client, err := media.NewYouTubeClient(media.YouTubeConfig{
			APIKey:  cfg.Media.YouTubeAPIKey,
			BaseURL: cfg.Media.YouTubeBaseURL,
			Timeout: cfg.Media.SearchTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("init youtube client: %w", err)
		}
		videos = client
	} else {
		log.Info("youtube api key not configured, using static video catalog")
		videos = media.NewStaticVideoSearcher()
	}

	deps := routes.Dependencies{
		Config:        cfg,
		Logger:        log,
		RateLimiter:   rateLimiter,
		HTTPMetrics:   httpMetrics,
		TokenVerifier: security.NewTokenVerifier(cfg.Auth.TokenSecret),
		ResponseCache: responseCache,
		Videos:        videos,
		Services: routes.ServiceSet{
			Companion: companionService,
			Metrics:   metricsService,
		},
	}
	if pool != nil {
		deps.Database = pool
	}
	if redisClient != nil {
		deps.Cache = redisClient
	}

	engine := routes.Register(deps)

	return &Application{
		cfg:       cfg,
		engine:    engine,
		logger:    log,
		telemetry: tel,
		pool:      pool,
		redis:     redisClient,
		producer:  producer,
		metrics:   metricsService,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			if err := a.producer.Close(); err != nil {
				a.logger.Warn("failed to close kafka producer", zap.Error(err))
			}
		}
	}()

	flushCtx, stopFlusher := context.WithCancel(context.Background())
	defer stopFlusher()
	a.metrics.Start(flushCtx)

	readTimeout := a.cfg.App.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := a.cfg.App.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 20 * time.Second
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting guard API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownTimeout := a.cfg.App.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("failed to shut down telemetry", zap.Error(err))
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
