package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/portal/internal/logger"
	"github.com/MrSnakeDoc/portal/internal/utils"
)

// AllowOnlyCIDRS limits a route to callers inside allowed (IPs or CIDRs).
// An empty or unparsable list disables the check. trustProxy makes the
// caller address come from proxy headers, see utils.ClientIP.
func AllowOnlyCIDRS(allowed []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	m := utils.NewIPMatcher(allowed)
	if m.IsEmpty() {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, trustProxy)
			if m.Allow(ip) {
				next.ServeHTTP(w, r)
				return
			}
			log.Debug("caller outside operator networks",
				logger.String("ip", ip),
				logger.String("path", r.URL.Path),
				logger.Bool("trust_proxy", trustProxy))
			writeError(w, http.StatusForbidden, "address not allowed")
		})
	}
}
