// File: internal/infra/auth/token_source.go
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"fliq-payments/internal/domain/ports/adapter"
	"fliq-payments/internal/errclass"
)

// RefreshFunc obtains a fresh bearer token from the auth collaborator.
type RefreshFunc func(ctx context.Context) (string, error)

var _ adapter.TokenSource = (*CachedTokenSource)(nil)

// CachedTokenSource mints the backend bearer token just-in-time: the cached
// token is reused until it is within leeway of its exp claim, then
// refreshed. The token is parsed unverified — this side holds no signing
// key; validation is the backend's job.
type CachedTokenSource struct {
	mu      sync.Mutex
	token   string
	expires time.Time
	refresh RefreshFunc
	leeway  time.Duration
	now     func() time.Time
}

func NewCachedTokenSource(refresh RefreshFunc, leeway time.Duration) *CachedTokenSource {
	if leeway <= 0 {
		leeway = 30 * time.Second
	}
	return &CachedTokenSource{refresh: refresh, leeway: leeway, now: time.Now}
}

func (s *CachedTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Add(s.leeway).Before(s.expires) {
		return s.token, nil
	}

	tok, err := s.refresh(ctx)
	if err != nil {
		return "", &errclass.AuthError{Code: "token_refresh_failed", Err: err}
	}

	exp, err := tokenExpiry(tok)
	if err != nil {
		return "", &errclass.AuthError{Code: "token_invalid", Err: err}
	}

	s.token = tok
	s.expires = exp
	return s.token, nil
}

func (s *CachedTokenSource) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.expires = time.Time{}
	s.mu.Unlock()
}

func tokenExpiry(tok string) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tok, claims); err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		// no exp claim; treat as short-lived so we refresh often
		return time.Now().Add(time.Minute), nil
	}
	return claims.ExpiresAt.Time, nil
}
