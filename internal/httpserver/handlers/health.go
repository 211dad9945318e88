package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/portal/internal/domain"
	"github.com/MrSnakeDoc/portal/internal/httpserver/deps"
	"github.com/MrSnakeDoc/portal/internal/logger"
)

// healthCheckBody accepts either explicit targets or bare ports.
type healthCheckBody struct {
	Targets []domain.Target `json:"targets"`
	Ports   []int           `json:"ports"`
}

func (b healthCheckBody) targets() ([]domain.Target, bool) {
	out := make([]domain.Target, 0, len(b.Targets)+len(b.Ports))
	out = append(out, b.Targets...)
	for _, p := range b.Ports {
		out = append(out, domain.Target{Port: p})
	}
	for _, t := range out {
		if t.Port <= 0 || t.Port > 65535 {
			return nil, false
		}
	}
	return out, true
}

// HealthCheck probes the posted targets and returns one result per distinct
// target. It does not touch the live board.
func HealthCheck(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body healthCheckBody
		if !decodeJSON(w, r, &body) {
			return
		}
		targets, ok := body.targets()
		if !ok {
			writeError(w, http.StatusBadRequest, badPort)
			return
		}

		targets = domain.DistinctTargets(targets)
		if len(targets) == 0 {
			writeJSON(w, http.StatusOK, []domain.ProbeResult{})
			return
		}
		writeJSON(w, http.StatusOK, d.Prober.CheckBatch(r.Context(), targets))
	}
}

// HealthStatus returns the live board maintained by the poller.
func HealthStatus(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Monitor.Snapshot())
	}
}

// Recheck queues a full health cycle.
func Recheck(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.RecheckTrigger == nil || !d.RecheckTrigger() {
			d.Logger.Warn("health recheck already queued",
				logger.String("remote_ip", r.RemoteAddr))
			writeError(w, http.StatusTooManyRequests, "a health check is already queued")
			return
		}

		d.Logger.Info("health recheck triggered via endpoint",
			logger.String("remote_ip", r.RemoteAddr))
		writeJSON(w, http.StatusAccepted, okResponse{OK: true})
	}
}

type livenessResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Liveness answers the admin surface's own health probe.
func Liveness(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, livenessResponse{
			Status:    "ok",
			Timestamp: d.Now().UTC(),
		})
	}
}
