// Package crypto issues and verifies the HS256 tokens that guard admin routes.
package crypto

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/turtacn/touristsafety/internal/config"
	apperrors "github.com/turtacn/touristsafety/pkg/errors"
)

// ErrSecretMissing is returned when no JWT secret is configured.
var ErrSecretMissing = errors.New("auth.jwt_secret is not configured")

type jwtManagerImpl struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTManager creates a TokenManager from the auth configuration.
func NewJWTManager(cfg config.AuthConfig) (TokenManager, error) {
	return newJWTManager(cfg, time.Now)
}

// NewJWTManagerWithClock is NewJWTManager with an injectable clock.
func NewJWTManagerWithClock(cfg config.AuthConfig, now func() time.Time) (TokenManager, error) {
	return newJWTManager(cfg, now)
}

func newJWTManager(cfg config.AuthConfig, now func() time.Time) (TokenManager, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrSecretMissing
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &jwtManagerImpl{secret: []byte(cfg.JWTSecret), issuer: cfg.Issuer, ttl: ttl, now: now}, nil
}

// Issue creates and signs a new JWT.
func (j *jwtManagerImpl) Issue(subject, role string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", apperrors.ErrInvalidRequest("token subject is required")
	}
	if ttl <= 0 {
		ttl = j.ttl
	}
	now := j.now()
	claims := AdminClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a JWT string.
func (j *jwtManagerImpl) Verify(tokenString string) (*AdminClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(j.now),
		jwt.WithExpirationRequired(),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return j.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrUnauthorized("token has expired")
		}
		return nil, apperrors.Wrap(err, apperrors.CodeUnauthorized, "invalid token")
	}
	if !token.Valid {
		return nil, apperrors.ErrUnauthorized("invalid token")
	}
	return claims, nil
}
