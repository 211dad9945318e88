package client

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/portal/internal/auth"
	"github.com/MrSnakeDoc/portal/internal/logger"
)

// SessionToken is the cached admin session.
type SessionToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Session keeps the admin token issued by the server. Expiry is enforced
// client-side too: an expired token is dropped without asking the server.
type Session struct {
	api   *API
	cache *Cache
	log   logger.Logger
	now   func() time.Time

	mu      sync.Mutex
	current *SessionToken
}

func loadSession(api *API, cache *Cache, log logger.Logger, now func() time.Time) *Session {
	s := &Session{api: api, cache: cache, log: log, now: now}
	var tok SessionToken
	if _, ok := cache.Decode(keySession, &tok); ok && tok.Token != "" {
		s.current = &tok
	}
	if tok, ok := s.Current(); ok {
		api.SetToken(tok.Token)
	}
	return s
}

// Current returns the session if it has not expired.
func (s *Session) Current() (SessionToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return SessionToken{}, false
	}
	if !s.current.ExpiresAt.IsZero() && !s.now().Before(s.current.ExpiresAt) {
		_ = s.dropLocked()
		return SessionToken{}, false
	}
	return *s.current, true
}

// Login verifies password with the server. A wrong password is not an error.
func (s *Session) Login(ctx context.Context, password string) (bool, error) {
	info, err := s.api.Verify(ctx, auth.ClientHash(password))
	if err != nil {
		return false, err
	}
	if !info.Valid || info.Token == "" {
		return false, nil
	}

	tok := SessionToken{Token: info.Token}
	if info.ExpiresAt != nil {
		tok.ExpiresAt = *info.ExpiresAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &tok
	s.api.SetToken(tok.Token)
	return true, s.cache.Put(keySession, tok, 0, false)
}

// Logout forgets the session. The server call only clears the cookie, so
// its failure is logged and ignored.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.api.Logout(ctx); err != nil {
		s.log.Warn("logout request failed", logger.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropLocked()
}

// ChangePassword replaces the admin password.
func (s *Session) ChangePassword(ctx context.Context, current, next string) error {
	return s.api.ChangePassword(ctx, auth.ClientHash(current), auth.ClientHash(next))
}

func (s *Session) dropLocked() error {
	s.current = nil
	s.api.SetToken("")
	return s.cache.Delete(keySession)
}
