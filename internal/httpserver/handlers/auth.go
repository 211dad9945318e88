package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/portal/internal/auth"
	"github.com/MrSnakeDoc/portal/internal/httpserver/deps"
	"github.com/MrSnakeDoc/portal/internal/logger"
	"github.com/MrSnakeDoc/portal/internal/utils"
)

type verifyBody struct {
	PasswordHash string `json:"passwordHash"`
}

type passwordBody struct {
	CurrentHash string `json:"currentHash"`
	NewHash     string `json:"newHash"`
}

type sessionResponse struct {
	Valid     bool       `json:"valid"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func sessionCookie(r *http.Request, token string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
}

// VerifyPassword checks the presented client hash. A match issues a session
// token, returned in the body and set as an HttpOnly cookie.
func VerifyPassword(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body verifyBody
		if !decodeJSON(w, r, &body) {
			return
		}

		ok, err := d.Portal.Verify(r.Context(), body.PasswordHash)
		if err != nil {
			writeFailure(d, w, r, err)
			return
		}
		if !ok {
			d.Logger.Warn("admin password rejected",
				logger.String("remote_ip", utils.ClientIP(r, d.TrustProxy)))
			writeJSON(w, http.StatusOK, sessionResponse{Valid: false})
			return
		}

		token, claims, err := d.Sessions.Issue()
		if err != nil {
			writeFailure(d, w, r, err)
			return
		}
		expires := claims.ExpiresAt()
		http.SetCookie(w, sessionCookie(r, token, expires))
		writeJSON(w, http.StatusOK, sessionResponse{Valid: true, Token: token, ExpiresAt: &expires})
	}
}

func ChangePassword(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body passwordBody
		if !decodeJSON(w, r, &body) {
			return
		}

		if err := d.Portal.ChangePassword(r.Context(), body.CurrentHash, body.NewHash); err != nil {
			writeFailure(d, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, okResponse{OK: true})
	}
}

// Session reports whether the request carries a valid admin session.
func Session(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := d.Sessions.Verify(auth.TokenFromRequest(r))
		if err != nil {
			writeJSON(w, http.StatusOK, sessionResponse{Valid: false})
			return
		}
		expires := claims.ExpiresAt()
		writeJSON(w, http.StatusOK, sessionResponse{Valid: true, ExpiresAt: &expires})
	}
}

// Logout clears the session cookie. Tokens are stateless and stay valid
// until they expire.
func Logout(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := sessionCookie(r, "", time.Unix(0, 0))
		c.MaxAge = -1
		http.SetCookie(w, c)
		writeJSON(w, http.StatusOK, okResponse{OK: true})
	}
}

// isAdmin reports whether r carries a valid admin session.
func isAdmin(d deps.Deps, r *http.Request) bool {
	if d.Sessions == nil {
		return false
	}
	_, err := d.Sessions.Verify(auth.TokenFromRequest(r))
	return err == nil
}
