package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	Auth      AuthSettings      `mapstructure:"auth"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Cache     CacheSettings     `mapstructure:"cache"`
	Metrics   MetricsSettings   `mapstructure:"metrics"`
	Media     MediaSettings     `mapstructure:"media"`
}

type AppSettings struct {
	Name               string        `mapstructure:"name"`
	Env                string        `mapstructure:"env"`
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures the Redis connection and the key namespace used by
// the rate-limit store.
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
	KeyPrefix  string `mapstructure:"key_prefix"`
}

// KafkaSettings configures the analytics event producer.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

// AuthSettings holds the bearer-token secret used to resolve per-user
// identifiers and the argon2id hash guarding the admin surface. An empty
// admin key hash disables the admin endpoints entirely.
type AuthSettings struct {
	TokenSecret    string        `mapstructure:"token_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	AdminKeyHash   string        `mapstructure:"admin_key_hash"`
}

// LimiterSettings is one named fixed-window preset.
type LimiterSettings struct {
	Window      time.Duration `mapstructure:"window"`
	MaxRequests int           `mapstructure:"max_requests"`
}

// RateLimitSettings selects the counter store backend, the behavior when that
// store is unreachable, and the per-route presets.
type RateLimitSettings struct {
	Store         string          `mapstructure:"store"`
	FailurePolicy string          `mapstructure:"failure_policy"`
	Auth          LimiterSettings `mapstructure:"auth"`
	AdminWrite    LimiterSettings `mapstructure:"admin_write"`
	Comments      LimiterSettings `mapstructure:"comments"`
	Votes         LimiterSettings `mapstructure:"votes"`
	VideoSearch   LimiterSettings `mapstructure:"video_search"`
}

// CacheSettings bounds the companion response cache.
type CacheSettings struct {
	TTL                 time.Duration `mapstructure:"ttl"`
	Capacity            int           `mapstructure:"capacity"`
	CacheableCategories []string      `mapstructure:"cacheable_categories"`
}

// MetricsSettings bounds the companion metrics collector and its summary flusher.
type MetricsSettings struct {
	ErrorHistorySize int           `mapstructure:"error_history_size"`
	SampleBufferSize int           `mapstructure:"sample_buffer_size"`
	FlushInterval    time.Duration `mapstructure:"flush_interval"`
}

// MediaSettings configures the third-party video search proxy. Without an API
// key the service falls back to the built-in static catalog.
type MediaSettings struct {
	YouTubeAPIKey  string        `mapstructure:"youtube_api_key"`
	YouTubeBaseURL string        `mapstructure:"youtube_base_url"`
	SearchTimeout  time.Duration `mapstructure:"search_timeout"`
}

type TelemetrySettings struct {
	MetricsPort     int     `mapstructure:"metrics_port"`
	TracingEndpoint string  `mapstructure:"tracing_endpoint"`
	OTLPEndpoint    string  `mapstructure:"otlp_endpoint"`
	ServiceName     string  `mapstructure:"service_name"`
	SamplingRate    float64 `mapstructure:"sampling_rate"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("GUARD")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.read_timeout",
		"app.write_timeout",
		"app.shutdown_timeout",
		"app.cors_allowed_origins",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.key_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"auth.token_secret",
		"auth.access_token_ttl",
		"auth.admin_key_hash",
		"telemetry.metrics_port",
		"telemetry.tracing_endpoint",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
		"rate_limit.store",
		"rate_limit.failure_policy",
		"rate_limit.auth.window",
		"rate_limit.auth.max_requests",
		"rate_limit.admin_write.window",
		"rate_limit.admin_write.max_requests",
		"rate_limit.comments.window",
		"rate_limit.comments.max_requests",
		"rate_limit.votes.window",
		"rate_limit.votes.max_requests",
		"rate_limit.video_search.window",
		"rate_limit.video_search.max_requests",
		"cache.ttl",
		"cache.capacity",
		"cache.cacheable_categories",
		"metrics.error_history_size",
		"metrics.sample_buffer_size",
		"metrics.flush_interval",
		"media.youtube_api_key",
		"media.youtube_base_url",
		"media.search_timeout",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "platform-guard")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.read_timeout", "10s")
	v.SetDefault("app.write_timeout", "20s")
	v.SetDefault("app.shutdown_timeout", "10s")
	v.SetDefault("app.cors_allowed_origins", []string{"*"})

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "guard")
	v.SetDefault("postgres.password", "guard_password")
	v.SetDefault("postgres.database", "guard")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.key_prefix", "guard:ratelimit")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "guard")
	v.SetDefault("kafka.async", true)

	v.SetDefault("auth.token_secret", "")
	v.SetDefault("auth.access_token_ttl", "1h")
	v.SetDefault("auth.admin_key_hash", "")

	v.SetDefault("telemetry.metrics_port", 9090)
	v.SetDefault("telemetry.tracing_endpoint", "http://localhost:4317")
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "platform-guard")
	v.SetDefault("telemetry.sampling_rate", 1.0)

	// Platform presets: authentication is the tightest window, votes and
	// video search the loosest.
	v.SetDefault("rate_limit.store", "memory")
	v.SetDefault("rate_limit.failure_policy", "fail_open")
	v.SetDefault("rate_limit.auth.window", "15m")
	v.SetDefault("rate_limit.auth.max_requests", 5)
	v.SetDefault("rate_limit.admin_write.window", "1m")
	v.SetDefault("rate_limit.admin_write.max_requests", 20)
	v.SetDefault("rate_limit.comments.window", "1m")
	v.SetDefault("rate_limit.comments.max_requests", 10)
	v.SetDefault("rate_limit.votes.window", "1m")
	v.SetDefault("rate_limit.votes.max_requests", 30)
	v.SetDefault("rate_limit.video_search.window", "1m")
	v.SetDefault("rate_limit.video_search.max_requests", 30)

	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.capacity", 1000)
	v.SetDefault("cache.cacheable_categories", []string{
		"general", "quest_help", "task_help", "navigation", "feedback",
	})

	v.SetDefault("metrics.error_history_size", 50)
	v.SetDefault("metrics.sample_buffer_size", 1000)
	v.SetDefault("metrics.flush_interval", "5m")

	v.SetDefault("media.youtube_api_key", "")
	v.SetDefault("media.youtube_base_url", "")
	v.SetDefault("media.search_timeout", "10s")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "GUARD_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
