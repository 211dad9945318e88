// Package client is the portal API client and its client-side state:
// one container per concern, each backed by a local cache used when the
// API is unreachable.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/portal/internal/domain"
	"github.com/MrSnakeDoc/portal/internal/health"
	"github.com/MrSnakeDoc/portal/internal/portal"
	"github.com/MrSnakeDoc/portal/internal/utils"
)

const (
	adminPrefix = "/api/admin"

	// RevisionHeader carries the revision of the document a response was built from.
	RevisionHeader = "X-Revision"

	DefaultTimeout = 10 * time.Second
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status int
	Msg    string
}

func (e *APIError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("unexpected status: %d", e.Status)
	}
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Msg)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// API performs the portal REST calls.
type API struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewAPI creates an API client for baseURL, e.g. "http://localhost:3001".
func NewAPI(baseURL string, timeout time.Duration) *API {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SetToken sets the bearer token sent with every request. Empty clears it.
func (a *API) SetToken(token string) { a.token = token }

// do sends in as JSON (when non-nil) and decodes the answer into out (when
// non-nil). It returns the X-Revision of the answer, 0 when absent.
func (a *API) do(ctx context.Context, method, path string, in, out any) (uint64, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer utils.Close(resp.Body)

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &errResp)
		return 0, &APIError{Status: resp.StatusCode, Msg: errResp.Error}
	}

	rev, _ := strconv.ParseUint(resp.Header.Get(RevisionHeader), 10, 64)
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return rev, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return rev, nil
}

// Dashboard

// ServicesPage is the public dashboard listing.
type ServicesPage struct {
	Services []domain.ServiceView `json:"services"`
	Summary  domain.Summary       `json:"summary"`
	Admin    bool                 `json:"admin"`
}

func (a *API) Services(ctx context.Context, query, category string) (ServicesPage, error) {
	v := url.Values{}
	if query != "" {
		v.Set("q", query)
	}
	if category != "" {
		v.Set("category", category)
	}
	path := "/api/services"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}

	var page ServicesPage
	_, err := a.do(ctx, http.MethodGet, path, nil, &page)
	return page, err
}

func (a *API) Categories(ctx context.Context) ([]portal.CategoryView, error) {
	var cats []portal.CategoryView
	_, err := a.do(ctx, http.MethodGet, "/api/categories", nil, &cats)
	return cats, err
}

// Custom services

// CustomFields is the create/update payload. Nil fields are omitted, which
// leaves them unchanged on update.
type CustomFields struct {
	Name          *string        `json:"name,omitempty"`
	Description   *string        `json:"description,omitempty"`
	Port          *int           `json:"port,omitempty"`
	Path          *string        `json:"path,omitempty"`
	DefaultStatus *domain.Status `json:"defaultStatus,omitempty"`
	IconName      *string        `json:"iconName,omitempty"`
	Category      *string        `json:"category,omitempty"`
}

func (a *API) CustomServices(ctx context.Context) ([]domain.CustomService, uint64, error) {
	var out []domain.CustomService
	rev, err := a.do(ctx, http.MethodGet, adminPrefix+"/services/custom", nil, &out)
	return out, rev, err
}

func (a *API) CreateCustom(ctx context.Context, f CustomFields) (domain.CustomService, uint64, error) {
	var out domain.CustomService
	rev, err := a.do(ctx, http.MethodPost, adminPrefix+"/services/custom", f, &out)
	return out, rev, err
}

func (a *API) UpdateCustom(ctx context.Context, id string, f CustomFields) (domain.CustomService, uint64, error) {
	var out domain.CustomService
	rev, err := a.do(ctx, http.MethodPut, adminPrefix+"/services/custom/"+url.PathEscape(id), f, &out)
	return out, rev, err
}

func (a *API) DeleteCustom(ctx context.Context, id string) (uint64, error) {
	return a.do(ctx, http.MethodDelete, adminPrefix+"/services/custom/"+url.PathEscape(id), nil, nil)
}

// Status overrides

func (a *API) Overrides(ctx context.Context) (domain.Overrides, uint64, error) {
	out := domain.Overrides{}
	rev, err := a.do(ctx, http.MethodGet, adminPrefix+"/status", nil, &out)
	return out, rev, err
}

func (a *API) SetStatus(ctx context.Context, id string, status domain.Status) (uint64, error) {
	body := struct {
		Status domain.Status `json:"status"`
	}{status}
	return a.do(ctx, http.MethodPut, adminPrefix+"/status/"+url.PathEscape(id), body, nil)
}

func (a *API) ClearStatus(ctx context.Context, id string) (uint64, error) {
	return a.do(ctx, http.MethodDelete, adminPrefix+"/status/"+url.PathEscape(id), nil, nil)
}

func (a *API) ClearAllStatus(ctx context.Context) (uint64, error) {
	return a.do(ctx, http.MethodDelete, adminPrefix+"/status", nil, nil)
}

// Id sets

// Set names one of the server-side id sets.
type Set string

const (
	SetHidden    Set = "hidden"
	SetAdminOnly Set = "admin-only"
)

func (a *API) IDs(ctx context.Context, set Set) ([]string, uint64, error) {
	var out []string
	rev, err := a.do(ctx, http.MethodGet, adminPrefix+"/"+string(set), nil, &out)
	return out, rev, err
}

func (a *API) ToggleID(ctx context.Context, set Set, id string) ([]string, uint64, error) {
	var out struct {
		IDs []string `json:"ids"`
	}
	rev, err := a.do(ctx, http.MethodPut, adminPrefix+"/"+string(set)+"/"+url.PathEscape(id), nil, &out)
	return out.IDs, rev, err
}

// Auth

// SessionInfo is the answer of verify and session.
type SessionInfo struct {
	Valid     bool       `json:"valid"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func (a *API) Verify(ctx context.Context, passwordHash string) (SessionInfo, error) {
	body := struct {
		PasswordHash string `json:"passwordHash"`
	}{passwordHash}
	var out SessionInfo
	_, err := a.do(ctx, http.MethodPost, adminPrefix+"/auth/verify", body, &out)
	return out, err
}

func (a *API) Session(ctx context.Context) (SessionInfo, error) {
	var out SessionInfo
	_, err := a.do(ctx, http.MethodGet, adminPrefix+"/auth/session", nil, &out)
	return out, err
}

func (a *API) Logout(ctx context.Context) error {
	_, err := a.do(ctx, http.MethodPost, adminPrefix+"/auth/logout", nil, nil)
	return err
}

func (a *API) ChangePassword(ctx context.Context, currentHash, newHash string) error {
	body := struct {
		CurrentHash string `json:"currentHash"`
		NewHash     string `json:"newHash"`
	}{currentHash, newHash}
	_, err := a.do(ctx, http.MethodPut, adminPrefix+"/auth/password", body, nil)
	return err
}

// Health

func (a *API) HealthStatus(ctx context.Context) (health.Snapshot, error) {
	var out health.Snapshot
	_, err := a.do(ctx, http.MethodGet, adminPrefix+"/health-status", nil, &out)
	return out, err
}

// Recheck queues a full server-side health cycle.
func (a *API) Recheck(ctx context.Context) error {
	_, err := a.do(ctx, http.MethodPost, adminPrefix+"/health-status/recheck", nil, nil)
	return err
}

// CheckTargets probes targets once from the server side.
func (a *API) CheckTargets(ctx context.Context, targets []domain.Target) ([]domain.ProbeResult, error) {
	body := struct {
		Targets []domain.Target `json:"targets"`
	}{targets}
	var out []domain.ProbeResult
	_, err := a.do(ctx, http.MethodPost, adminPrefix+"/health-check", body, &out)
	return out, err
}
