package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/portal/internal/httpserver/deps"
	"github.com/MrSnakeDoc/portal/internal/httpserver/mw"
	"github.com/MrSnakeDoc/portal/internal/logger"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
	// Layer builds a group middleware once the server dependencies exist.
	Layer func(d deps.Deps) Middleware
)

type group struct {
	name   string
	reg    Registrar
	layers []Layer
}

var groups []group

// Register adds a named route group. layers wrap every route of the group,
// outermost first.
func Register(name string, reg Registrar, layers ...Layer) {
	groups = append(groups, group{name: name, reg: reg, layers: layers})
}

// RegisterAll mounts every group on r. Called once from httpserver.NewRouter.
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, g := range groups {
		r.Group(func(sub chi.Router) {
			for _, l := range g.layers {
				sub.Use(l(d))
			}
			g.reg(sub, d)
		})
		d.Logger.Debug("route group registered",
			logger.String("group", g.name),
			logger.Int("layers", len(g.layers)))
	}
}

// hostCheck rejects requests for hosts outside PORTAL_ALLOWED_HOSTS.
func hostCheck(d deps.Deps) Middleware { return mw.EnforceHost(d.AllowedHosts, d.Logger) }

// cidrCheck limits operator endpoints to PORTAL_ALLOWED_CIDRS.
func cidrCheck(d deps.Deps) Middleware {
	return mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)
}

// sessionGuard protects mutations when PORTAL_REQUIRE_SESSION is set.
func sessionGuard(d deps.Deps) Middleware {
	return mw.RequireSession(d.Sessions, d.RequireSession, d.Logger)
}
