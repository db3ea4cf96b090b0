package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid indicates a malformed, mis-signed, or claim-less token.
	ErrTokenInvalid = errors.New("security: invalid access token")
	// ErrTokenExpired indicates a structurally valid token past its expiry.
	ErrTokenExpired = errors.New("security: access token expired")
)

// AccessClaims carries the identity fields the guard layer cares about.
type AccessClaims struct {
	UserID string `json:"uid,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier validates and issues HS256 access tokens shared with the
// upstream platform.
type TokenVerifier struct {
	secret []byte
	now    func() time.Time
}

// NewTokenVerifier builds a verifier around the shared signing secret.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (v *TokenVerifier) WithClock(now func() time.Time) *TokenVerifier {
	if now != nil {
		v.now = now
	}
	return v
}

// Verify parses and validates a token string, returning its claims. The user
// identity comes from the uid claim with the subject as fallback.
func (v *TokenVerifier) Verify(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user identity", ErrTokenInvalid)
	}

	return claims, nil
}

// Issue signs a token for the given user, valid for ttl from now.
func (v *TokenVerifier) Issue(userID string, ttl time.Duration) (string, error) {
	now := v.now()

	claims := AccessClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	return signed, nil
}
