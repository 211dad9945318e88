package deps

import (
	"time"

	"github.com/MrSnakeDoc/portal/internal/auth"
	"github.com/MrSnakeDoc/portal/internal/health"
	"github.com/MrSnakeDoc/portal/internal/logger"
	"github.com/MrSnakeDoc/portal/internal/metrics"
	"github.com/MrSnakeDoc/portal/internal/portal"
	"github.com/MrSnakeDoc/portal/internal/store"
)

// Trigger queues background work, returning false when it is already queued.
type Trigger func() bool

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time // for testing, defaults to time.Now
	AllowedHosts   []string         // Host headers allowed to access the server
	AllowedCIDRS   []string         // IPs allowed to access readyz and metrics endpoints
	TrustProxy     bool             // true if running behind a trusted reverse proxy
	CORSOrigins    []string         // Origins allowed by the CORS middleware
	RequireSession bool             // true => mutating admin routes need a session token
	AuthRateBurst  int              // verify attempts per client IP in a burst
	AuthRatePerMin int              // verify attempts refilled per minute

	Portal   *portal.Service  // Admin operations over the store
	Store    *store.Store     // Document store (readiness only)
	Monitor  *health.Monitor  // Live reachability board
	Prober   health.Checker   // Direct probes for the health-check endpoint
	Sessions *auth.Sessions   // Admin session tokens
	Metrics  *metrics.Metrics // nil disables /metrics

	RecheckTrigger       Trigger // Queue a full health cycle
	CatalogReloadTrigger Trigger // Queue a catalog reload
}

// Now returns the current time through TimeNow when set.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
