// Package auth issues and validates operator session tokens.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	dErrors "onboard-gateway/pkg/domain-errors"
)

const issuer = "onboard-gateway"

// Claims carries the operator identity inside a session token.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// SessionService authenticates the operator account and mints session JWTs.
type SessionService struct {
	username     string
	passwordHash string
	signingKey   []byte
	ttl          time.Duration
	now          func() time.Time
}

// Option customizes a SessionService.
type Option func(*SessionService)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *SessionService) { s.now = now }
}

// NewSessionService creates a SessionService. passwordHash is a bcrypt hash.
func NewSessionService(username, passwordHash, signingKey string, ttl time.Duration, opts ...Option) *SessionService {
	svc := &SessionService{
		username:     username,
		passwordHash: passwordHash,
		signingKey:   []byte(signingKey),
		ttl:          ttl,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Login verifies the operator credentials and returns a signed session token.
func (s *SessionService) Login(username, password string) (string, error) {
	if username != s.username || s.passwordHash == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	now := s.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign session token")
	}
	return signed, nil
}

// ValidateToken checks a session token and returns its claims.
func (s *SessionService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "session expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}
	return claims, nil
}
