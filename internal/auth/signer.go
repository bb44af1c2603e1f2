package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSecret is returned when a signer has no HMAC secret to sign with
var ErrNoSecret = errors.New("jwt secret not configured")

// Signer mints HS256 tokens for one subject and caches the current one
// until it is close to expiry or invalidated.
type Signer struct {
	Secret  string
	Subject string
	TTL     time.Duration

	mu      sync.Mutex
	token   string
	expires time.Time
	now     func() time.Time
}

// NewSigner creates a signer; ttl defaults to 15 minutes
func NewSigner(secret, subject string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Signer{Secret: secret, Subject: subject, TTL: ttl, now: time.Now}
}

// Token returns a cached token or signs a new one
func (s *Signer) Token(_ context.Context) (string, error) {
	if s.Secret == "" {
		return "", ErrNoSecret
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	// refresh a little before expiry so in-flight requests do not race it
	if s.token != "" && now.Add(30*time.Second).Before(s.expires) {
		return s.token, nil
	}

	expires := now.Add(s.TTL)
	claims := jwt.RegisteredClaims{
		Subject:   s.Subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.Secret))
	if err != nil {
		return "", err
	}
	s.token, s.expires = tok, expires
	return tok, nil
}

// Invalidate drops the cached token so the next call signs a fresh one
func (s *Signer) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

func (s *Signer) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}
