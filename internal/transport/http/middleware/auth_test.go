package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/questforge/platform-guard/internal/infra/security"
)

func newAuthRouter(handler gin.HandlerFunc) (*gin.Engine, *string) {
	gin.SetMode(gin.TestMode)

	var seenUser string
	router := gin.New()
	router.Use(handler)
	router.GET("/", func(c *gin.Context) {
		if userID, ok := GetAuthenticatedUserID(c); ok {
			seenUser = userID
		}
		c.Status(http.StatusOK)
	})

	return router, &seenUser
}

func TestOptionalAuth_SetsUserForValidToken(t *testing.T) {
	verifier := security.NewTokenVerifier("test-secret")
	token, err := verifier.Issue("u-7", time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	router, seenUser := newAuthRouter(OptionalAuth(verifier))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if *seenUser != "u-7" {
		t.Errorf("expected handler to see u-7, got %q", *seenUser)
	}
}

func TestOptionalAuth_TreatsInvalidTokenAsAnonymous(t *testing.T) {
	verifier := security.NewTokenVerifier("test-secret")
	router, seenUser := newAuthRouter(OptionalAuth(verifier))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for anonymous pass-through, got %d", rr.Code)
	}
	if *seenUser != "" {
		t.Errorf("expected no user identity, got %q", *seenUser)
	}
}

func TestRequireAuth_RejectsMissingHeader(t *testing.T) {
	verifier := security.NewTokenVerifier("test-secret")
	router, _ := newAuthRouter(RequireAuth(verifier))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRequireAuth_RejectsExpiredToken(t *testing.T) {
	issuedAt := time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)
	issuer := security.NewTokenVerifier("test-secret").WithClock(func() time.Time { return issuedAt })

	token, err := issuer.Issue("u-7", time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	verifier := security.NewTokenVerifier("test-secret")
	router, _ := newAuthRouter(RequireAuth(verifier))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", rr.Code)
	}
}

func TestRequireAuth_AllowsValidToken(t *testing.T) {
	verifier := security.NewTokenVerifier("test-secret")
	token, err := verifier.Issue("u-7", time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	router, seenUser := newAuthRouter(RequireAuth(verifier))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if *seenUser != "u-7" {
		t.Errorf("expected handler to see u-7, got %q", *seenUser)
	}
}

func TestRequireAdminKey(t *testing.T) {
	hash, err := security.HashAdminKey("operator-key")
	if err != nil {
		t.Fatalf("HashAdminKey failed: %v", err)
	}

	logger := zaptest.NewLogger(t)

	tests := []struct {
		name       string
		configured string
		key        string
		want       int
	}{
		{"valid key", hash, "operator-key", http.StatusOK},
		{"wrong key", hash, "intruder", http.StatusForbidden},
		{"missing key", hash, "", http.StatusUnauthorized},
		{"disabled surface", "", "operator-key", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newAuthRouter(RequireAdminKey(tt.configured, logger))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.key != "" {
				req.Header.Set(AdminKeyHeader, tt.key)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}
