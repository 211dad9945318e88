package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/portal/internal/httpserver/deps"
)

type toggleResponse struct {
	OK  bool     `json:"ok"`
	IDs []string `json:"ids"`
}

type (
	listFunc   func(ctx context.Context) ([]string, uint64, error)
	toggleFunc func(ctx context.Context, id string) ([]string, uint64, error)
)

func listSet(d deps.Deps, list listFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, rev, err := list(r.Context())
		if err != nil {
			writeFailure(d, w, r, err)
			return
		}
		if ids == nil {
			ids = []string{}
		}
		setRevision(w, rev)
		writeJSON(w, http.StatusOK, ids)
	}
}

func toggleSet(d deps.Deps, toggle toggleFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, rev, err := toggle(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeFailure(d, w, r, err)
			return
		}
		if ids == nil {
			ids = []string{}
		}
		setRevision(w, rev)
		writeJSON(w, http.StatusOK, toggleResponse{OK: true, IDs: ids})
	}
}

func ListAdminOnly(d deps.Deps) http.HandlerFunc   { return listSet(d, d.Portal.ListAdminOnly) }
func ToggleAdminOnly(d deps.Deps) http.HandlerFunc { return toggleSet(d, d.Portal.ToggleAdminOnly) }
func ListHidden(d deps.Deps) http.HandlerFunc      { return listSet(d, d.Portal.ListHidden) }
func ToggleHidden(d deps.Deps) http.HandlerFunc    { return toggleSet(d, d.Portal.ToggleHidden) }
