package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/portal/internal/domain"
	"github.com/MrSnakeDoc/portal/internal/httpserver/deps"
	"github.com/MrSnakeDoc/portal/internal/portal"
)

// customBody is the create/update payload. Port accepts a JSON number or a
// numeric string, as the dashboard form sends either.
type customBody struct {
	Name          *string         `json:"name"`
	Description   *string         `json:"description"`
	Port          json.RawMessage `json:"port"`
	Path          *string         `json:"path"`
	DefaultStatus *domain.Status  `json:"defaultStatus"`
	IconName      *string         `json:"iconName"`
	Category      *string         `json:"category"`
}

const badPort = "port must be an integer between 1 and 65535"

func (b customBody) input() (portal.CustomInput, string) {
	in := portal.CustomInput{
		Name:          b.Name,
		Description:   b.Description,
		Path:          b.Path,
		DefaultStatus: b.DefaultStatus,
		Icon:          b.IconName,
		Category:      b.Category,
	}

	port, ok := parsePort(b.Port)
	if !ok {
		return in, badPort
	}
	in.Port = port
	return in, ""
}

// parsePort returns nil for an absent or null port.
func parsePort(raw json.RawMessage) (*int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, true
	}

	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, false
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, true
		}
	} else {
		s = string(raw)
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, false
	}
	return &n, true
}

func ListCustom(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services, rev, err := d.Portal.ListCustom(r.Context())
		if err != nil {
			writeFailure(d, w, r, err)
			return
		}
		if services == nil {
			services = []domain.CustomService{}
		}
		setRevision(w, rev)
		writeJSON(w, http.StatusOK, services)
	}
}

func CreateCustom(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body customBody
		if !decodeJSON(w, r, &body) {
			return
		}
		in, msg := body.input()
		if msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		svc, rev, err := d.Portal.CreateCustom(r.Context(), in)
		if err != nil {
			writeFailure(d, w, r, err)
			return
		}

		setRevision(w, rev)
		writeJSON(w, http.StatusCreated, svc)
	}
}

func UpdateCustom(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body customBody
		if !decodeJSON(w, r, &body) {
			return
		}
		in, msg := body.input()
		if msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		svc, rev, err := d.Portal.UpdateCustom(r.Context(), chi.URLParam(r, "id"), in)
		if err != nil {
			writeFailure(d, w, r, err)
			return
		}
		setRevision(w, rev)
		writeJSON(w, http.StatusOK, svc)
	}
}

func DeleteCustom(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rev, err := d.Portal.DeleteCustom(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeFailure(d, w, r, err)
			return
		}

		setRevision(w, rev)
		writeJSON(w, http.StatusOK, okResponse{OK: true})
	}
}
