package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/portal/internal/httpserver/deps"
	"github.com/MrSnakeDoc/portal/internal/logger"
)

// CatalogReload triggers a manual reload of the catalog file
func CatalogReload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.CatalogReloadTrigger == nil || !d.CatalogReloadTrigger() {
			d.Logger.Warn("catalog reload already in progress",
				logger.String("remote_ip", r.RemoteAddr))
			writeError(w, http.StatusTooManyRequests, "reload already in progress, please wait")
			return
		}

		d.Logger.Info("manual catalog reload triggered via endpoint",
			logger.String("remote_ip", r.RemoteAddr))
		writeJSON(w, http.StatusAccepted, okResponse{OK: true})
	}
}
