package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/MrSnakeDoc/portal/internal/httpserver/deps"
	"github.com/MrSnakeDoc/portal/internal/logger"
	"github.com/MrSnakeDoc/portal/internal/portal"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// setRevision exposes the revision of the document an operation read or wrote.
func setRevision(w http.ResponseWriter, rev uint64) {
	w.Header().Set("X-Revision", strconv.FormatUint(rev, 10))
}

// writeFailure maps portal errors to 400/403/404 and anything else to 500.
func writeFailure(d deps.Deps, w http.ResponseWriter, r *http.Request, err error) {
	var pe *portal.Error
	switch {
	case errors.As(err, &pe) && errors.Is(err, portal.ErrInvalid):
		writeError(w, http.StatusBadRequest, pe.Msg)
	case errors.As(err, &pe) && errors.Is(err, portal.ErrForbidden):
		writeError(w, http.StatusForbidden, pe.Msg)
	case errors.As(err, &pe) && errors.Is(err, portal.ErrNotFound):
		writeError(w, http.StatusNotFound, pe.Msg)
	default:
		d.Logger.Error("request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeError(w, http.StatusBadRequest, "invalid JSON body")
	return false
}
