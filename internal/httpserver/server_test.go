package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/portal/internal/auth"
	"github.com/MrSnakeDoc/portal/internal/catalog"
	"github.com/MrSnakeDoc/portal/internal/domain"
	"github.com/MrSnakeDoc/portal/internal/health"
	"github.com/MrSnakeDoc/portal/internal/httpserver/deps"
	"github.com/MrSnakeDoc/portal/internal/logger"
	"github.com/MrSnakeDoc/portal/internal/metrics"
	"github.com/MrSnakeDoc/portal/internal/portal"
	"github.com/MrSnakeDoc/portal/internal/store"
	"github.com/MrSnakeDoc/portal/internal/store/file"
)

const adminPassword = "correct horse"

type upChecker struct {
	up map[int]bool
}

func (c *upChecker) CheckBatch(_ context.Context, targets []domain.Target) []domain.ProbeResult {
	out := make([]domain.ProbeResult, len(targets))
	for i, t := range targets {
		out[i] = domain.ProbeResult{Port: t.Port, Reachable: c.up[t.Port]}
	}
	return out
}

// queued mimics a trigger channel of capacity one.
func queued() deps.Trigger {
	var n atomic.Int32
	return func() bool { return n.Add(1) == 1 }
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	deps    deps.Deps
}

func newTestServer(t *testing.T, mutate ...func(*deps.Deps)) *testServer {
	t.Helper()

	b, err := file.New(t.TempDir())
	require.NoError(t, err)
	st := store.New(b, logger.Nop(), nil)

	cat, err := catalog.Build(catalog.File{
		Categories: []catalog.CategoryEntry{{ID: "main", Label: "Main"}, {ID: "tools", Label: "Tools"}},
		Services: []catalog.ServiceEntry{
			{ID: "s1", Name: "Wiki", Description: "team wiki", Port: 8501, Category: "main"},
			{ID: "s2", Name: "Builder", Port: 8502, Path: "/builder", DefaultStatus: "maintenance", Category: "tools"},
		},
	})
	require.NoError(t, err)

	svc := portal.New(st, catalog.NewHolder(cat), logger.Nop())
	require.NoError(t, svc.Bootstrap(context.Background(), adminPassword))

	sessions, err := auth.NewSessions(nil, time.Hour)
	require.NoError(t, err)

	checker := &upChecker{up: map[int]bool{8501: true}}
	mon := health.NewMonitor(checker, nil)

	d := deps.Deps{
		Logger:               logger.Nop(),
		StartTime:            time.Now(),
		Version:              "test",
		CORSOrigins:          []string{"*"},
		AuthRateBurst:        20,
		AuthRatePerMin:       1,
		Portal:               svc,
		Store:                st,
		Monitor:              mon,
		Prober:               checker,
		Sessions:             sessions,
		Metrics:              metrics.New("test"),
		RecheckTrigger:       queued(),
		CatalogReloadTrigger: queued(),
	}
	for _, m := range mutate {
		m(&d)
	}

	return &testServer{t: t, handler: NewRouter(d, 5*time.Second), deps: d}
}

func (s *testServer) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login() string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/admin/auth/verify",
		`{"passwordHash":"`+auth.ClientHash(adminPassword)+`"}`)
	require.Equal(s.t, http.StatusOK, rec.Code)

	var resp struct {
		Valid bool   `json:"valid"`
		Token string `json:"token"`
	}
	decode(s.t, rec, &resp)
	require.True(s.t, resp.Valid)
	return resp.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var e struct {
		Error string `json:"error"`
	}
	decode(t, rec, &e)
	return e.Error
}

func TestCustomServiceLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/admin/services/custom", `{"name":"Grafana","port":"3000","path":"/grafana"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "1", rec.Header().Get("X-Revision"))

	var created domain.CustomService
	decode(t, rec, &created)
	assert.True(t, strings.HasPrefix(created.ID, "custom-"))
	assert.Equal(t, 3000, created.Port)
	assert.Equal(t, domain.StatusOnline, created.DefaultStatus)
	assert.Equal(t, "Server", created.Icon)
	assert.Equal(t, "tools", created.Category)

	rec = s.do(http.MethodGet, "/api/admin/services/custom", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []domain.CustomService
	decode(t, rec, &list)
	require.Len(t, list, 1)

	rec = s.do(http.MethodPut, "/api/admin/services/custom/"+created.ID, `{"port":3001,"description":"dashboards"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated domain.CustomService
	decode(t, rec, &updated)
	assert.Equal(t, 3001, updated.Port)
	assert.Equal(t, "Grafana", updated.Name)
	assert.Equal(t, "dashboards", updated.Description)
	assert.Equal(t, "2", rec.Header().Get("X-Revision"))

	rec = s.do(http.MethodPut, "/api/admin/services/custom/custom-missing", `{"port":3001}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "service not found", errorMessage(t, rec))

	rec = s.do(http.MethodDelete, "/api/admin/services/custom/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = s.do(http.MethodDelete, "/api/admin/services/custom/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/api/admin/services/custom", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCreateCustomValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing name", `{"port":3000}`, "name and port are required"},
		{"missing port", `{"name":"x"}`, "name and port are required"},
		{"non numeric port", `{"name":"x","port":"abc"}`, "port must be an integer between 1 and 65535"},
		{"fractional port", `{"name":"x","port":80.5}`, "port must be an integer between 1 and 65535"},
		{"port out of range", `{"name":"x","port":70000}`, "port must be an integer between 1 and 65535"},
		{"bad status", `{"name":"x","port":3000,"defaultStatus":"broken"}`, "defaultStatus must be online, maintenance, or inactive"},
		{"bad json", `{"name":`, "invalid JSON body"},
	}

	s := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/admin/services/custom", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, errorMessage(t, rec))
		})
	}

	rec := s.do(http.MethodGet, "/api/admin/services/custom", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestStatusOverrides(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPut, "/api/admin/status/s1", `{"status":"maintenance"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPut, "/api/admin/status/s2", `{"status":"inactive"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/admin/status", "")
	assert.JSONEq(t, `{"s1":"maintenance","s2":"inactive"}`, rec.Body.String())
	assert.Equal(t, "2", rec.Header().Get("X-Revision"))

	rec = s.do(http.MethodPut, "/api/admin/status/s1", `{"status":"sleeping"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodDelete, "/api/admin/status/s1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, "/api/admin/status", "")
	assert.JSONEq(t, `{"s2":"inactive"}`, rec.Body.String())

	rec = s.do(http.MethodDelete, "/api/admin/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, "/api/admin/status", "")
	assert.JSONEq(t, `{}`, rec.Body.String())
}

func TestToggleSets(t *testing.T) {
	for _, path := range []string{"/api/admin/admin-only", "/api/admin/hidden"} {
		t.Run(path, func(t *testing.T) {
			s := newTestServer(t)

			rec := s.do(http.MethodGet, path, "")
			assert.JSONEq(t, `[]`, rec.Body.String())

			rec = s.do(http.MethodPut, path+"/s1", "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"ok":true,"ids":["s1"]}`, rec.Body.String())

			rec = s.do(http.MethodPut, path+"/s1", "")
			assert.JSONEq(t, `{"ok":true,"ids":[]}`, rec.Body.String())
			assert.Equal(t, "2", rec.Header().Get("X-Revision"))
		})
	}
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/admin/auth/verify", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "passwordHash is required", errorMessage(t, rec))

	rec = s.do(http.MethodPost, "/api/admin/auth/verify", `{"passwordHash":"h_wrong"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"valid":false}`, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/admin/auth/verify", `{"passwordHash":"`+auth.ClientHash(adminPassword)+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Valid     bool      `json:"valid"`
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expiresAt"`
	}
	decode(t, rec, &resp)
	assert.True(t, resp.Valid)
	assert.NotEmpty(t, resp.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), resp.ExpiresAt, time.Minute)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	rec = s.do(http.MethodGet, "/api/admin/auth/session", "", "Authorization", "Bearer "+resp.Token)
	var session struct {
		Valid bool `json:"valid"`
	}
	decode(t, rec, &session)
	assert.True(t, session.Valid)

	rec = s.do(http.MethodGet, "/api/admin/auth/session", "")
	assert.JSONEq(t, `{"valid":false}`, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/admin/auth/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestChangePassword(t *testing.T) {
	s := newTestServer(t)
	current := auth.ClientHash(adminPassword)
	next := auth.ClientHash("new password")

	rec := s.do(http.MethodPut, "/api/admin/auth/password", `{"currentHash":"`+current+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, "/api/admin/auth/password", `{"currentHash":"h_nope","newHash":"`+next+`"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "current password is incorrect", errorMessage(t, rec))

	rec = s.do(http.MethodPut, "/api/admin/auth/password", `{"currentHash":"`+current+`","newHash":"`+next+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/api/admin/auth/verify", `{"passwordHash":"`+current+`"}`)
	assert.JSONEq(t, `{"valid":false}`, rec.Body.String())
	rec = s.do(http.MethodPost, "/api/admin/auth/verify", `{"passwordHash":"`+next+`"}`)
	assert.Contains(t, rec.Body.String(), `"valid":true`)
}

func TestVerifyIsRateLimited(t *testing.T) {
	s := newTestServer(t, func(d *deps.Deps) { d.AuthRateBurst = 2 })

	for i := 0; i < 2; i++ {
		rec := s.do(http.MethodPost, "/api/admin/auth/verify", `{"passwordHash":"h_x"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := s.do(http.MethodPost, "/api/admin/auth/verify", `{"passwordHash":"h_x"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRequireSession(t *testing.T) {
	s := newTestServer(t, func(d *deps.Deps) { d.RequireSession = true })

	rec := s.do(http.MethodPut, "/api/admin/hidden/s1", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Reads stay open
	rec = s.do(http.MethodGet, "/api/admin/hidden", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	token := s.login()
	rec = s.do(http.MethodPut, "/api/admin/hidden/s1", "", "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthCheckEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/admin/health-check", `{"ports":[8501,9999,8501]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"port":8501,"reachable":true},{"port":9999,"reachable":false}]`, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/admin/health-check", `{"targets":[{"port":8502,"path":"/builder"}]}`)
	assert.JSONEq(t, `[{"port":8502,"reachable":false}]`, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/admin/health-check", `{"ports":[]}`)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/admin/health-check", `{"ports":[0]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The raw endpoint leaves the board alone
	assert.Empty(t, s.deps.Monitor.Snapshot().Statuses)
}

func TestHealthStatusAndRecheck(t *testing.T) {
	s := newTestServer(t)
	s.deps.Monitor.CheckBatch(context.Background(), []domain.Target{{Port: 8501}, {Port: 8502}})

	rec := s.do(http.MethodGet, "/api/admin/health-status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap struct {
		Statuses         map[string]string `json:"statuses"`
		IsChecking       bool              `json:"isChecking"`
		NetworkAvailable *bool             `json:"networkAvailable"`
		LastChecked      *time.Time        `json:"lastChecked"`
	}
	decode(t, rec, &snap)
	assert.Equal(t, map[string]string{"8501": "reachable", "8502": "unreachable"}, snap.Statuses)
	assert.False(t, snap.IsChecking)
	require.NotNil(t, snap.NetworkAvailable)
	assert.True(t, *snap.NetworkAvailable)
	assert.NotNil(t, snap.LastChecked)

	rec = s.do(http.MethodPost, "/api/admin/health-status/recheck", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	rec = s.do(http.MethodPost, "/api/admin/health-status/recheck", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = s.do(http.MethodPost, "/api/admin/catalog/reload", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	rec = s.do(http.MethodPost, "/api/admin/catalog/reload", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestLiveness(t *testing.T) {
	s := newTestServer(t, func(d *deps.Deps) {
		d.TimeNow = func() time.Time { return time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC) }
	})

	rec := s.do(http.MethodGet, "/api/admin/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","timestamp":"2026-05-04T03:02:01Z"}`, rec.Body.String())
}

func TestPublicServices(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPut, "/api/admin/admin-only/s2", "")
	s.do(http.MethodPut, "/api/admin/status/s1", `{"status":"inactive"}`)
	s.deps.Monitor.CheckBatch(context.Background(), []domain.Target{{Port: 8501}, {Port: 8502}})

	type response struct {
		Services []domain.ServiceView `json:"services"`
		Summary  domain.Summary       `json:"summary"`
		Admin    bool                 `json:"admin"`
	}

	var anon response
	decode(t, s.do(http.MethodGet, "/api/services", ""), &anon)
	require.Len(t, anon.Services, 1)
	assert.Equal(t, "s1", anon.Services[0].ID)
	assert.Equal(t, domain.StatusInactive, anon.Services[0].Status)
	assert.Equal(t, domain.HealthReachable, anon.Services[0].Health)
	assert.Equal(t, 1, anon.Summary.Inactive)
	assert.False(t, anon.Admin)

	token := s.login()
	var admin response
	decode(t, s.do(http.MethodGet, "/api/services", "", "Authorization", "Bearer "+token), &admin)
	assert.Len(t, admin.Services, 2)
	assert.True(t, admin.Admin)

	var filtered response
	decode(t, s.do(http.MethodGet, "/api/services?q=build&category=tools", "", "Authorization", "Bearer "+token), &filtered)
	require.Len(t, filtered.Services, 1)
	assert.Equal(t, "s2", filtered.Services[0].ID)

	rec := s.do(http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cats []struct {
		ID       string   `json:"id"`
		Services []string `json:"services"`
	}
	decode(t, rec, &cats)
	require.Len(t, cats, 2)
	assert.Equal(t, []string{"s1"}, cats[0].Services)
}

func TestProbesAndMetrics(t *testing.T) {
	s := newTestServer(t, func(d *deps.Deps) { d.AllowedCIDRS = []string{"10.0.0.0/8"} })

	rec := s.do(http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	// httptest requests come from 192.0.2.1
	rec = s.do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	open := newTestServer(t)
	rec = open.do(http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"backend":"file"`)

	rec = open.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `portal_http_requests_total{code="200",method="GET"}`)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodOptions, "/api/admin/status/s1", "",
		"Origin", "http://dashboard.local",
		"Access-Control-Request-Method", "PUT")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PUT")
}
