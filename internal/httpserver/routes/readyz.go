package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/portal/internal/httpserver/deps"
	"github.com/MrSnakeDoc/portal/internal/httpserver/handlers"
)

func init() { Register("probes", registerProbes) }

// registerProbes serves liveness to anyone; readiness and metrics only to
// the operator networks.
func registerProbes(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))

	restricted := r.With(cidrCheck(d))
	restricted.Get("/readyz", handlers.Readyz(d))
	if d.Metrics != nil {
		restricted.Method("GET", "/metrics", d.Metrics.Handler())
	}
}
