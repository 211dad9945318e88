package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/portal/internal/httpserver/deps"
	"github.com/MrSnakeDoc/portal/internal/httpserver/handlers"
)

func init() { Register("catalog", registerCatalog, hostCheck, sessionGuard) }

func registerCatalog(r chi.Router, d deps.Deps) {
	r.Post(adminPrefix+"/catalog/reload", handlers.CatalogReload(d))
}
