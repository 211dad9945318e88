package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	// CookieName is the session cookie set by the API.
	CookieName = "portal_session"
	// Subject is the only principal the portal knows about.
	Subject = "admin"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrExpiredToken = errors.New("session expired")
)

// Claims is the signed session payload.
type Claims struct {
	Sub string `json:"sub"`
	Exp int64  `json:"exp"`
}

// ExpiresAt returns the expiry as a time.
func (c Claims) ExpiresAt() time.Time { return time.Unix(c.Exp, 0).UTC() }

// Sessions issues and verifies stateless HMAC-signed session tokens.
type Sessions struct {
	codec *securecookie.SecureCookie
	ttl   time.Duration
	now   func() time.Time
}

// NewSessions builds a token codec. An empty key generates a random one,
// which invalidates tokens on restart.
func NewSessions(key []byte, ttl time.Duration) (*Sessions, error) {
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
		if key == nil {
			return nil, fmt.Errorf("failed to generate session key")
		}
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be > 0, got %v", ttl)
	}

	codec := securecookie.New(key, nil)
	codec.SetSerializer(securecookie.JSONEncoder{})
	// Expiry is carried in the claims.
	codec.MaxAge(0)

	return &Sessions{codec: codec, ttl: ttl, now: time.Now}, nil
}

// TTL returns the session lifetime.
func (s *Sessions) TTL() time.Duration { return s.ttl }

// Issue returns a new admin token and its claims.
func (s *Sessions) Issue() (string, Claims, error) {
	c := Claims{Sub: Subject, Exp: s.now().Add(s.ttl).Unix()}
	token, err := s.codec.Encode(CookieName, c)
	if err != nil {
		return "", Claims{}, fmt.Errorf("failed to encode session: %w", err)
	}
	return token, c, nil
}

// Verify decodes a token and checks its subject and expiry.
func (s *Sessions) Verify(token string) (Claims, error) {
	if token == "" {
		return Claims{}, ErrInvalidToken
	}
	var c Claims
	if err := s.codec.Decode(CookieName, token, &c); err != nil {
		return Claims{}, ErrInvalidToken
	}
	if c.Sub != Subject {
		return Claims{}, ErrInvalidToken
	}
	if s.now().Unix() >= c.Exp {
		return Claims{}, ErrExpiredToken
	}
	return c, nil
}

// TokenFromRequest returns the session token carried by r, preferring an
// Authorization bearer header over the session cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// GeneratePassword returns a random printable password for first boot.
func GeneratePassword() (string, error) {
	b := securecookie.GenerateRandomKey(15)
	if b == nil {
		return "", fmt.Errorf("failed to generate password")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
