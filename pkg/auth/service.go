package auth

import (
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/theapemachine/agentdeck/pkg/errors"
)

// DefaultTokenTTL is how long issued tokens stay valid.
const DefaultTokenTTL = time.Hour

/*
Service verifies the bearer tokens sent to the API and applies the shared rate
limit. Tokens are HS256 JWTs signed with the configured secret.
*/
type Service struct {
	mu         sync.RWMutex
	revoked    map[string]time.Time
	limiter    *RateLimiter
	signingKey []byte
	ttl        time.Duration
}

type ServiceOption func(*Service)

// WithRateLimit enables rate limiting at rate requests per interval.
func WithRateLimit(rate int64, interval time.Duration) ServiceOption {
	return func(service *Service) {
		if rate > 0 {
			service.limiter = NewRateLimiter(rate, interval)
		}
	}
}

func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(service *Service) {
		service.ttl = ttl
	}
}

func NewService(secret string, options ...ServiceOption) *Service {
	service := &Service{
		revoked:    map[string]time.Time{},
		signingKey: []byte(secret),
		ttl:        DefaultTokenTTL,
	}

	for _, option := range options {
		option(service)
	}

	return service
}

// TokenInfo is an issued token and its metadata.
type TokenInfo struct {
	Token     string    `json:"token"`
	Subject   string    `json:"subject"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (service *Service) signingKeyFor(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.ErrUnauthorized.WithMessagef(
			"unexpected signing method: %v", token.Header["alg"],
		)
	}

	return service.signingKey, nil
}

/*
Authenticate checks the rate limit and the Authorization header value, and
returns the token's subject.
*/
func (service *Service) Authenticate(header string) (string, error) {
	if service.limiter != nil && !service.limiter.Allow() {
		return "", errors.ErrRateLimited
	}

	raw, found := strings.CutPrefix(header, "Bearer ")

	if !found || raw == "" {
		return "", errors.ErrUnauthorized.WithMessagef("missing bearer token")
	}

	if service.isRevoked(raw) {
		return "", errors.ErrUnauthorized.WithMessagef("token revoked")
	}

	token, err := jwt.Parse(raw, service.signingKeyFor, jwt.WithExpirationRequired())

	if err != nil {
		return "", errors.ErrUnauthorized.WithMessagef("invalid token: %v", err)
	}

	subject, err := token.Claims.GetSubject()

	if err != nil {
		return "", errors.ErrUnauthorized.WithMessagef("invalid subject: %v", err)
	}

	return subject, nil
}

// GenerateToken issues a token for subject that expires after the service TTL.
func (service *Service) GenerateToken(subject string) (*TokenInfo, error) {
	now := time.Now()
	expires := now.Add(service.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	})

	signed, err := token.SignedString(service.signingKey)

	if err != nil {
		return nil, errors.ErrInternal.Wrap(err)
	}

	return &TokenInfo{Token: signed, Subject: subject, ExpiresAt: expires}, nil
}

// RevokeToken rejects token from now on, until it would have expired anyway.
func (service *Service) RevokeToken(token string) {
	expires := time.Now().Add(service.ttl)

	if claims, err := service.claims(token); err == nil && claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}

	service.mu.Lock()
	defer service.mu.Unlock()

	service.revoked[token] = expires
	service.prune()
}

func (service *Service) claims(raw string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}

	if _, err := jwt.ParseWithClaims(raw, claims, service.signingKeyFor); err != nil {
		return nil, err
	}

	return claims, nil
}

func (service *Service) isRevoked(token string) bool {
	service.mu.RLock()
	defer service.mu.RUnlock()

	_, ok := service.revoked[token]
	return ok
}

// prune drops revoked tokens that have expired. Callers hold the lock.
func (service *Service) prune() {
	now := time.Now()

	for token, expires := range service.revoked {
		if now.After(expires) {
			delete(service.revoked, token)
		}
	}
}
