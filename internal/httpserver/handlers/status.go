package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/portal/internal/domain"
	"github.com/MrSnakeDoc/portal/internal/httpserver/deps"
)

type statusBody struct {
	Status domain.Status `json:"status"`
}

func ListStatus(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		overrides, rev, err := d.Portal.ListOverrides(r.Context())
		if err != nil {
			writeFailure(d, w, r, err)
			return
		}
		setRevision(w, rev)
		writeJSON(w, http.StatusOK, overrides)
	}
}

func SetStatus(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body statusBody
		if !decodeJSON(w, r, &body) {
			return
		}

		rev, err := d.Portal.SetOverride(r.Context(), chi.URLParam(r, "id"), body.Status)
		if err != nil {
			writeFailure(d, w, r, err)
			return
		}
		setRevision(w, rev)
		writeJSON(w, http.StatusOK, okResponse{OK: true})
	}
}

func ClearStatus(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rev, err := d.Portal.ClearOverride(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeFailure(d, w, r, err)
			return
		}
		setRevision(w, rev)
		writeJSON(w, http.StatusOK, okResponse{OK: true})
	}
}

func ClearAllStatus(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rev, err := d.Portal.ClearOverrides(r.Context())
		if err != nil {
			writeFailure(d, w, r, err)
			return
		}
		setRevision(w, rev)
		writeJSON(w, http.StatusOK, okResponse{OK: true})
	}
}
