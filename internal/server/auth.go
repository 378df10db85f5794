// Package server exposes `pywr serve`'s single-process HTTP API for
// submitting a model run and polling its status/results: build options,
// Run/graceful-shutdown, health status, and metrics/telemetry wiring over
// plain net/http rather than a generated RPC transport (see DESIGN.md's
// dropped-dependency list for why).
package server

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthConfig configures the bearer token gating run submission.
type AuthConfig struct {
	SecretKey   string
	TokenExpiry time.Duration
	Issuer      string

	// AdminPasswordHash is a bcrypt hash (HashPassword's output); the only
	// account `pywr serve` has is a single admin user, matching its scope
	// as a local job-submission API rather than a multi-tenant service.
	AdminPasswordHash string
}

func DefaultAuthConfig() *AuthConfig {
	return &AuthConfig{
		TokenExpiry: 1 * time.Hour,
		Issuer:      "pywr-serve",
	}
}

// Claims is the bearer token's payload.
type Claims struct {
	Subject string `json:"sub"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies bearer tokens, trimmed to one token
// kind since `pywr serve` has no refresh-token flow (a CLI-submitted run
// is a single short-lived session, not a browser session needing silent
// renewal).
type TokenManager struct {
	cfg *AuthConfig
}

func NewTokenManager(cfg *AuthConfig) *TokenManager {
	if cfg == nil {
		cfg = DefaultAuthConfig()
	}
	return &TokenManager{cfg: cfg}
}

func (m *TokenManager) Issue(subject string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.cfg.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.TokenExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.cfg.SecretKey))
}

func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(m.cfg.SecretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// HashPassword bcrypt-hashes a password for storage in AdminPasswordHash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword verifies password against a bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
