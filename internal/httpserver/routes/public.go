package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/portal/internal/httpserver/deps"
	"github.com/MrSnakeDoc/portal/internal/httpserver/handlers"
)

func init() { Register("public", registerPublic, hostCheck) }

func registerPublic(r chi.Router, d deps.Deps) {
	r.Get("/api/services", handlers.Services(d))
	r.Get("/api/categories", handlers.Categories(d))
}
