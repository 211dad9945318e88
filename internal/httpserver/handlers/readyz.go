package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/portal/internal/httpserver/deps"
)

type componentStatus struct {
	OK             bool   `json:"ok"`
	Backend        string `json:"backend,omitempty"`
	ServicesLoaded *int   `json:"services_loaded,omitempty"`
	LastCheck      string `json:"last_check,omitempty"`
	Error          string `json:"error,omitempty"`
}

type readyzResponse struct {
	Ready      bool                       `json:"ready"`
	Components map[string]componentStatus `json:"components"`
}

// Readyz reports whether the store answers. The catalog and the health board
// are informational and never make the server unready.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeStatus := checkStore(r.Context(), d)

		count := d.Portal.Catalog().Count()
		lastCheck := "never"
		if snap := d.Monitor.Snapshot(); snap.LastChecked != nil {
			lastCheck = snap.LastChecked.Format(time.RFC3339)
		}

		resp := readyzResponse{
			Ready: storeStatus.OK,
			Components: map[string]componentStatus{
				"store":   storeStatus,
				"catalog": {OK: count > 0, ServicesLoaded: &count},
				"health":  {OK: true, LastCheck: lastCheck},
			},
		}

		status := http.StatusOK
		if !resp.Ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}

func checkStore(ctx context.Context, d deps.Deps) componentStatus {
	if d.Store == nil {
		return componentStatus{OK: false, Error: "store not initialized"}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	backend := d.Store.Backend().Name()
	if err := d.Store.Ping(ctx); err != nil {
		return componentStatus{OK: false, Backend: backend, Error: err.Error()}
	}
	return componentStatus{OK: true, Backend: backend}
}
