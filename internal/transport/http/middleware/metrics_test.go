package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/questforge/platform-guard/internal/core/domain"
)

func newTestHTTPMetrics(t *testing.T) *HTTPMetrics {
	t.Helper()

	metrics, err := NewHTTPMetrics(HTTPMetricsOptions{Registerer: prometheus.NewRegistry()})
	if err != nil {
		t.Fatalf("failed to create http metrics: %v", err)
	}
	return metrics
}

func TestHTTPMetricsHandlerRecordsRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	metrics := newTestHTTPMetrics(t)

	router := gin.New()
	router.Use(metrics.Handler())
	router.POST("/api/companion/ask", func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/companion/ask", nil))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rr.Code)
	}

	labels := prometheus.Labels{
		"method": http.MethodPost,
		"route":  "/api/companion/ask",
		"status": "201",
	}

	if got := testutil.ToFloat64(metrics.Requests.With(labels)); got != 1 {
		t.Fatalf("expected request counter 1, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.InFlight); got != 0 {
		t.Fatalf("expected in-flight gauge to return to 0, got %f", got)
	}
	if samples := testutil.CollectAndCount(metrics.Duration); samples == 0 {
		t.Fatal("expected the duration histogram to record a sample")
	}
}

func TestHTTPMetricsCountsRateLimitedRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)

	metrics := newTestHTTPMetrics(t)

	now := time.Date(2026, time.March, 10, 10, 0, 0, 0, time.UTC)
	store := &fakeRateLimitStore{results: map[string]fakeConsumeResult{
		"auth": {
			record:  domain.RateRecord{Count: 5, WindowStart: now.Add(-30 * time.Second), ResetAt: now.Add(30 * time.Second)},
			allowed: false,
		},
	}}

	limiter, _ := newTestGuard(t, store, domain.FailurePolicyOpen, now,
		domain.LimiterConfig{Name: "auth", Window: time.Minute, MaxRequests: 5})
	limiter.WithDenialCounter(metrics.RateLimited)

	router := gin.New()
	router.Use(metrics.Handler())
	router.Use(limiter.Guard(GuardRule{Limiter: "auth", Identifier: fixedIdentifier("ip:192.0.2.1")}))
	router.POST("/api/auth/login", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}

	if got := testutil.ToFloat64(metrics.RateLimited.WithLabelValues("auth")); got != 1 {
		t.Fatalf("expected rate limited counter 1 for the auth limiter, got %f", got)
	}

	labels := prometheus.Labels{
		"method": http.MethodPost,
		"route":  "/api/auth/login",
		"status": "429",
	}
	if got := testutil.ToFloat64(metrics.Requests.With(labels)); got != 1 {
		t.Fatalf("expected the request counter to record the denial, got %f", got)
	}
}

func TestHTTPMetricsHandlerNoopWhenNil(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use((*HTTPMetrics)(nil).Handler())
	router.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}
