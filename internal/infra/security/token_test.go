package security

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenVerifier_IssueAndVerify(t *testing.T) {
	now := time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)
	verifier := NewTokenVerifier("test-secret").WithClock(func() time.Time { return now })

	token, err := verifier.Issue("user-42", time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if claims.UserID != "user-42" {
		t.Errorf("expected user-42, got %s", claims.UserID)
	}
	if claims.Subject != "user-42" {
		t.Errorf("expected subject user-42, got %s", claims.Subject)
	}
}

func TestTokenVerifier_Verify_Expired(t *testing.T) {
	issuedAt := time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)
	issuer := NewTokenVerifier("test-secret").WithClock(func() time.Time { return issuedAt })

	token, err := issuer.Issue("user-42", time.Minute)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	later := issuedAt.Add(2 * time.Minute)
	verifier := NewTokenVerifier("test-secret").WithClock(func() time.Time { return later })

	if _, err := verifier.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenVerifier_Verify_WrongSecret(t *testing.T) {
	issuer := NewTokenVerifier("secret-a")

	token, err := issuer.Issue("user-42", time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	verifier := NewTokenVerifier("secret-b")
	if _, err := verifier.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestTokenVerifier_Verify_RejectsUnsignedToken(t *testing.T) {
	claims := AccessClaims{
		UserID: "user-42",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("building unsigned token failed: %v", err)
	}

	verifier := NewTokenVerifier("test-secret")
	if _, err := verifier.Verify(unsigned); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for alg=none, got %v", err)
	}
}

func TestTokenVerifier_Verify_Garbage(t *testing.T) {
	verifier := NewTokenVerifier("test-secret")

	if _, err := verifier.Verify("definitely-not-a-jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}
