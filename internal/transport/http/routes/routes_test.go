package routes_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/questforge/platform-guard/internal/core/domain"
	"github.com/questforge/platform-guard/internal/infra/companion"
	"github.com/questforge/platform-guard/internal/infra/config"
	"github.com/questforge/platform-guard/internal/infra/media"
	"github.com/questforge/platform-guard/internal/infra/security"
	"github.com/questforge/platform-guard/internal/repository/memory"
	"github.com/questforge/platform-guard/internal/transport/http/middleware"
	httproutes "github.com/questforge/platform-guard/internal/transport/http/routes"
	"github.com/questforge/platform-guard/internal/usecase"
)

const testAdminKey = "ops-master-key"

type routerFixture struct {
	engine   *gin.Engine
	verifier *security.TokenVerifier
}

func newRouterFixture(t *testing.T) routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zaptest.NewLogger(t)

	adminKeyHash, err := security.HashAdminKey(testAdminKey)
	if err != nil {
		t.Fatalf("HashAdminKey() error = %v", err)
	}

	cfg := &config.AppConfig{}
	cfg.App.Env = "test"
	cfg.App.CORSAllowedOrigins = []string{"*"}
	cfg.Auth.AdminKeyHash = adminKeyHash

	limits := usecase.NewRateLimitService(memory.NewRateLimitStore(), domain.FailurePolicyOpen, logger)
	presets := []domain.LimiterConfig{
		{Name: httproutes.LimiterAuth, Window: 15 * time.Minute, MaxRequests: 5},
		{Name: httproutes.LimiterAdminWrite, Window: time.Minute, MaxRequests: 20},
		{Name: httproutes.LimiterComments, Window: time.Minute, MaxRequests: 10},
		{Name: httproutes.LimiterVotes, Window: time.Minute, MaxRequests: 30},
		{Name: httproutes.LimiterVideoSearch, Window: time.Minute, MaxRequests: 30},
	}
	for _, preset := range presets {
		if err := limits.Register(preset); err != nil {
			t.Fatalf("Register(%s) error = %v", preset.Name, err)
		}
	}

	verifier := security.NewTokenVerifier("router-test-secret")

	cache := memory.NewResponseCache(memory.ResponseCacheConfig{
		TTL:                 time.Hour,
		Capacity:            100,
		CacheableCategories: domain.KnownCategories(),
	})
	metrics := usecase.NewMetricsService(usecase.MetricsConfig{}, logger)
	companionService := usecase.NewCompanionService(companion.NewScriptedAgent(), cache, metrics, nil, logger)

	deps := httproutes.Dependencies{
		Config:        cfg,
		Logger:        logger,
		RateLimiter:   middleware.NewRateLimiter(limits, nil, logger),
		Services:      httproutes.ServiceSet{Companion: companionService, Metrics: metrics},
		TokenVerifier: verifier,
		ResponseCache: cache,
		Videos:        media.NewStaticVideoSearcher(),
	}

	return routerFixture{engine: httproutes.Register(deps), verifier: verifier}
}

func (f routerFixture) do(method, target, body, remoteAddr string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.RemoteAddr = remoteAddr
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func TestRegister_LoginRateLimitContract(t *testing.T) {
	fixture := newRouterFixture(t)

	var statuses []int
	var last *httptest.ResponseRecorder
	for i := 0; i < 6; i++ {
		last = fixture.do(http.MethodPost, "/api/auth/login",
			`{"username":"player-one","password":"secret"}`, "1.2.3.4:40000", nil)
		statuses = append(statuses, last.Code)
	}

	want := []int{200, 200, 200, 200, 200, 429}
	for i, status := range statuses {
		if status != want[i] {
			t.Fatalf("statuses = %v, want %v", statuses, want)
		}
	}

	if got := last.Header().Get("Retry-After"); got != "900" {
		t.Errorf("Retry-After = %q, want 900", got)
	}
	if got := last.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(last.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal 429 body: %v", err)
	}
	if body.Error != "Too many requests" {
		t.Errorf("body.error = %q, want %q", body.Error, "Too many requests")
	}
	if body.Message == "" {
		t.Error("expected retry guidance in body.message")
	}
}

func TestRegister_LoginQuotaHeadersOnSuccess(t *testing.T) {
	fixture := newRouterFixture(t)

	rec := fixture.do(http.MethodPost, "/api/auth/login",
		`{"username":"player-one","password":"secret"}`, "9.9.9.9:40000", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "5" {
		t.Errorf("X-RateLimit-Limit = %q, want 5", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "4" {
		t.Errorf("X-RateLimit-Remaining = %q, want 4", got)
	}
	if got := rec.Header().Get("X-RateLimit-Reset"); got == "" || got == "0" {
		t.Errorf("X-RateLimit-Reset = %q, want seconds until window reset", got)
	}
	if got := rec.Header().Get("Retry-After"); got != "" {
		t.Errorf("Retry-After = %q, want unset on success", got)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal login body: %v", err)
	}
	if body.AccessToken == "" {
		t.Error("expected access token in response")
	}
}

func TestRegister_DistinctAddressesDoNotInterfere(t *testing.T) {
	fixture := newRouterFixture(t)

	for i := 0; i < 5; i++ {
		fixture.do(http.MethodPost, "/api/auth/login",
			`{"username":"player-one","password":"secret"}`, "1.2.3.4:40000", nil)
	}

	rec := fixture.do(http.MethodPost, "/api/auth/login",
		`{"username":"player-two","password":"secret"}`, "5.6.7.8:40000", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for a fresh address", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "4" {
		t.Errorf("X-RateLimit-Remaining = %q, want 4", got)
	}
}

func TestRegister_CompanionAskServesAndCaches(t *testing.T) {
	fixture := newRouterFixture(t)

	first := fixture.do(http.MethodPost, "/api/companion/ask",
		`{"message":"How do I accept my first quest?"}`, "1.2.3.4:40000", nil)
	if first.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", first.Code, first.Body.String())
	}

	var firstBody struct {
		Reply    string `json:"reply"`
		Category string `json:"category"`
		Language string `json:"language"`
		Cached   bool   `json:"cached"`
	}
	if err := json.Unmarshal(first.Body.Bytes(), &firstBody); err != nil {
		t.Fatalf("unmarshal first reply: %v", err)
	}
	if firstBody.Category != domain.CategoryQuestHelp {
		t.Errorf("category = %q, want %q", firstBody.Category, domain.CategoryQuestHelp)
	}
	if firstBody.Language != "en" {
		t.Errorf("language = %q, want en default", firstBody.Language)
	}
	if firstBody.Cached {
		t.Error("first answer should not be served from cache")
	}
	if firstBody.Reply == "" {
		t.Error("expected a non-empty reply")
	}

	second := fixture.do(http.MethodPost, "/api/companion/ask",
		`{"message":"  how do i ACCEPT my first quest?  "}`, "1.2.3.4:40000", nil)
	var secondBody struct {
		Cached bool `json:"cached"`
	}
	if err := json.Unmarshal(second.Body.Bytes(), &secondBody); err != nil {
		t.Fatalf("unmarshal second reply: %v", err)
	}
	if !secondBody.Cached {
		t.Error("normalised repeat of the same question should hit the cache")
	}
}

func TestRegister_ReplyRequiresAuthentication(t *testing.T) {
	fixture := newRouterFixture(t)

	anon := fixture.do(http.MethodPost, "/api/questions/42/replies",
		`{"body":"great question"}`, "1.2.3.4:40000", nil)
	if anon.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for anonymous reply", anon.Code)
	}

	token, err := fixture.verifier.Issue("user-7", time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	authed := fixture.do(http.MethodPost, "/api/questions/42/replies",
		`{"body":"great question"}`, "1.2.3.4:40000",
		map[string]string{"Authorization": "Bearer " + token})
	if authed.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", authed.Code, authed.Body.String())
	}

	var body struct {
		QuestionID string `json:"question_id"`
		AuthorID   string `json:"author_id"`
	}
	if err := json.Unmarshal(authed.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal reply body: %v", err)
	}
	if body.QuestionID != "42" {
		t.Errorf("question_id = %q, want 42", body.QuestionID)
	}
	if body.AuthorID != "user-7" {
		t.Errorf("author_id = %q, want user-7", body.AuthorID)
	}

	if got := authed.Header().Get("X-RateLimit-Limit"); got != "10" {
		t.Errorf("X-RateLimit-Limit = %q, want 10", got)
	}
}

func TestRegister_VoteCountsAnonymousByAddress(t *testing.T) {
	fixture := newRouterFixture(t)

	rec := fixture.do(http.MethodPost, "/api/replies/7/votes",
		`{"direction":"up"}`, "1.2.3.4:40000", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "30" {
		t.Errorf("X-RateLimit-Limit = %q, want 30", got)
	}
}

func TestRegister_VideoSearch(t *testing.T) {
	fixture := newRouterFixture(t)

	missing := fixture.do(http.MethodGet, "/api/videos/search", "", "1.2.3.4:40000", nil)
	if missing.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 without query", missing.Code)
	}

	rec := fixture.do(http.MethodGet, "/api/videos/search?q=quest", "", "1.2.3.4:40000", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Query   string `json:"query"`
		Results []struct {
			Title string `json:"title"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal search body: %v", err)
	}
	if body.Query != "quest" {
		t.Errorf("query = %q, want quest", body.Query)
	}
	if len(body.Results) == 0 {
		t.Error("expected catalog matches for 'quest'")
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "30" {
		t.Errorf("X-RateLimit-Limit = %q, want 30", got)
	}
}

func TestRegister_AdminSurfaceRequiresKey(t *testing.T) {
	fixture := newRouterFixture(t)

	missing := fixture.do(http.MethodGet, "/api/admin/metrics/summary", "", "1.2.3.4:40000", nil)
	if missing.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without admin key", missing.Code)
	}

	wrong := fixture.do(http.MethodGet, "/api/admin/metrics/summary", "", "1.2.3.4:40000",
		map[string]string{middleware.AdminKeyHeader: "not-the-key"})
	if wrong.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 with wrong admin key", wrong.Code)
	}

	ok := fixture.do(http.MethodGet, "/api/admin/metrics/summary", "", "1.2.3.4:40000",
		map[string]string{middleware.AdminKeyHeader: testAdminKey})
	if ok.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", ok.Code, ok.Body.String())
	}

	cleared := fixture.do(http.MethodDelete, "/api/admin/cache", "", "1.2.3.4:40000",
		map[string]string{middleware.AdminKeyHeader: testAdminKey})
	if cleared.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 clearing cache, body %s", cleared.Code, cleared.Body.String())
	}
	if got := cleared.Header().Get("X-RateLimit-Limit"); got != "20" {
		t.Errorf("X-RateLimit-Limit = %q, want 20 on admin writes", got)
	}
}

func TestRegister_HealthEndpoints(t *testing.T) {
	fixture := newRouterFixture(t)

	health := fixture.do(http.MethodGet, "/healthz", "", "1.2.3.4:40000", nil)
	if health.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", health.Code)
	}

	ready := fixture.do(http.MethodGet, "/readyz", "", "1.2.3.4:40000", nil)
	if ready.Code != http.StatusOK {
		t.Fatalf("readyz status = %d, want 200 with no checkers wired", ready.Code)
	}

	metrics := fixture.do(http.MethodGet, "/metrics", "", "1.2.3.4:40000", nil)
	if metrics.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", metrics.Code)
	}
}
