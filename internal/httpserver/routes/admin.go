package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/portal/internal/httpserver/deps"
	"github.com/MrSnakeDoc/portal/internal/httpserver/handlers"
)

const adminPrefix = "/api/admin"

func init() { Register("admin", registerAdmin, hostCheck) }

func registerAdmin(r chi.Router, d deps.Deps) {
	guarded := r.With(sessionGuard(d))

	r.Get(adminPrefix+"/services/custom", handlers.ListCustom(d))
	guarded.Post(adminPrefix+"/services/custom", handlers.CreateCustom(d))
	guarded.Put(adminPrefix+"/services/custom/{id}", handlers.UpdateCustom(d))
	guarded.Delete(adminPrefix+"/services/custom/{id}", handlers.DeleteCustom(d))

	r.Get(adminPrefix+"/status", handlers.ListStatus(d))
	guarded.Put(adminPrefix+"/status/{id}", handlers.SetStatus(d))
	guarded.Delete(adminPrefix+"/status/{id}", handlers.ClearStatus(d))
	guarded.Delete(adminPrefix+"/status", handlers.ClearAllStatus(d))

	r.Get(adminPrefix+"/admin-only", handlers.ListAdminOnly(d))
	guarded.Put(adminPrefix+"/admin-only/{id}", handlers.ToggleAdminOnly(d))

	r.Get(adminPrefix+"/hidden", handlers.ListHidden(d))
	guarded.Put(adminPrefix+"/hidden/{id}", handlers.ToggleHidden(d))
}
