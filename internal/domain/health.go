package domain

// HealthStatus is the live reachability classification of a port.
type HealthStatus string

const (
	HealthReachable   HealthStatus = "reachable"
	HealthUnreachable HealthStatus = "unreachable"
	HealthChecking    HealthStatus = "checking"

	// HealthNetworkError means no probed target answered at all, which points
	// at the network path rather than at a single service.
	HealthNetworkError HealthStatus = "network-error"
)

// Target is a single reachability probe destination.
type Target struct {
	Port int    `json:"port"`
	Path string `json:"path,omitempty"`
}

// ProbeResult is the raw outcome of probing one target.
type ProbeResult struct {
	Port      int  `json:"port"`
	Reachable bool `json:"reachable"`
}

// Classify turns raw probe results into per-port health statuses.
//
// If every result is unreachable the whole batch is network-error. An empty
// batch yields an empty map. Ports appearing more than once keep the last result.
func Classify(results []ProbeResult) map[int]HealthStatus {
	out := make(map[int]HealthStatus, len(results))
	if len(results) == 0 {
		return out
	}

	anyReachable := false
	for _, r := range results {
		if r.Reachable {
			anyReachable = true
			break
		}
	}

	for _, r := range results {
		switch {
		case !anyReachable:
			out[r.Port] = HealthNetworkError
		case r.Reachable:
			out[r.Port] = HealthReachable
		default:
			out[r.Port] = HealthUnreachable
		}
	}
	return out
}

// DistinctTargets drops duplicate (port, path) pairs, keeping first-seen order.
func DistinctTargets(targets []Target) []Target {
	seen := make(map[Target]bool, len(targets))
	out := make([]Target, 0, len(targets))
	for _, t := range targets {
		if t.Port <= 0 || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
