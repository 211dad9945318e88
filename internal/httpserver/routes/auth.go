package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/portal/internal/httpserver/deps"
	"github.com/MrSnakeDoc/portal/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/portal/internal/httpserver/mw"
)

func init() { Register("auth", registerAuth, hostCheck) }

func registerAuth(r chi.Router, d deps.Deps) {
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.AuthRateBurst,
		RefillPerIPPerMin: d.AuthRatePerMin,
		MaxEntries:        10000,
		TrustProxy:        d.TrustProxy,
	})

	r.With(limit).Post(adminPrefix+"/auth/verify", handlers.VerifyPassword(d))
	r.Get(adminPrefix+"/auth/session", handlers.Session(d))
	r.Post(adminPrefix+"/auth/logout", handlers.Logout(d))
	r.With(sessionGuard(d)).Put(adminPrefix+"/auth/password", handlers.ChangePassword(d))
}
