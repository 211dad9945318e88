package mw

import (
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/portal/internal/auth"
	"github.com/MrSnakeDoc/portal/internal/logger"
)

// RequireSession rejects requests without a valid admin session token.
// When enabled is false it is a passthrough.
func RequireSession(sessions *auth.Sessions, enabled bool, log logger.Logger) func(http.Handler) http.Handler {
	if !enabled || sessions == nil {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, err := sessions.Verify(auth.TokenFromRequest(r))
			if err != nil {
				msg := "admin session required"
				if errors.Is(err, auth.ErrExpiredToken) {
					msg = "admin session expired"
				}
				log.Debug("RequireSession: rejected",
					logger.String("path", r.URL.Path),
					logger.Error(err))
				writeError(w, http.StatusUnauthorized, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
