package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/portal/internal/httpserver/deps"
	"github.com/MrSnakeDoc/portal/internal/httpserver/handlers"
)

func init() { Register("health", registerHealth, hostCheck) }

func registerHealth(r chi.Router, d deps.Deps) {
	r.Get(adminPrefix+"/health", handlers.Liveness(d))
	r.Post(adminPrefix+"/health-check", handlers.HealthCheck(d))
	r.Get(adminPrefix+"/health-status", handlers.HealthStatus(d))
	r.With(sessionGuard(d)).Post(adminPrefix+"/health-status/recheck", handlers.Recheck(d))
}
