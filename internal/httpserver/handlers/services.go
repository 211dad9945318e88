package handlers

import (
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/portal/internal/domain"
	"github.com/MrSnakeDoc/portal/internal/httpserver/deps"
)

type servicesResponse struct {
	Services []domain.ServiceView `json:"services"`
	Summary  domain.Summary       `json:"summary"`
	Admin    bool                 `json:"admin"`
}

// Services returns the merged dashboard list, filtered by ?q= and
// ?category=, annotated with live health. Admin-only entries are included
// for a valid admin session only.
func Services(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin := isAdmin(d, r)

		views, err := d.Portal.Views(r.Context(), admin)
		if err != nil {
			writeFailure(d, w, r, err)
			return
		}

		q := r.URL.Query()
		views = domain.Filter(views, strings.TrimSpace(q.Get("q")), strings.TrimSpace(q.Get("category")))
		if views == nil {
			views = []domain.ServiceView{}
		}
		if d.Monitor != nil {
			d.Monitor.Annotate(views)
		}

		writeJSON(w, http.StatusOK, servicesResponse{
			Services: views,
			Summary:  domain.Summarize(views),
			Admin:    admin,
		})
	}
}

// Categories returns catalog categories with merged membership.
func Categories(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cats, err := d.Portal.Categories(r.Context())
		if err != nil {
			writeFailure(d, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, cats)
	}
}
