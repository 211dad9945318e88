// Package health keeps the live reachability board of service ports.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/portal/internal/domain"
)

// Cycle modes reported to observers.
const (
	ModeFull        = "full"
	ModeIncremental = "incremental"
)

// Checker probes a batch of targets. Results are in input order.
type Checker interface {
	CheckBatch(ctx context.Context, targets []domain.Target) []domain.ProbeResult
}

// Observer is notified after every committed cycle.
type Observer interface {
	CycleDone(mode string, probed, reachable int, elapsed time.Duration)
}

// Snapshot is a copy of the board at one instant.
type Snapshot struct {
	Statuses    map[int]domain.HealthStatus `json:"statuses"`
	LastChecked *time.Time                  `json:"lastChecked"`
	IsChecking  bool                        `json:"isChecking"`
	// NetworkAvailable is nil until the first cycle completes.
	NetworkAvailable *bool `json:"networkAvailable"`
}

// Monitor runs reachability cycles and holds their results, keyed by port.
// Cycles are serialized; readers never wait on a running cycle.
type Monitor struct {
	checker  Checker
	observer Observer
	now      func() time.Time

	cycle sync.Mutex

	mu               sync.RWMutex
	statuses         map[int]domain.HealthStatus
	lastChecked      time.Time
	checking         bool
	started          bool
	networkAvailable *bool
}

// NewMonitor creates an empty board. observer may be nil.
func NewMonitor(checker Checker, observer Observer) *Monitor {
	return &Monitor{
		checker:  checker,
		observer: observer,
		now:      time.Now,
		statuses: make(map[int]domain.HealthStatus),
	}
}

// CheckBatch runs a full cycle over targets and replaces the board with the
// outcome. Only the very first cycle shows ports as checking; later cycles
// keep the previous values until results arrive. If every target fails, all
// of them are network-error. An empty target list is a no-op.
func (m *Monitor) CheckBatch(ctx context.Context, targets []domain.Target) []domain.ProbeResult {
	targets = domain.DistinctTargets(targets)
	if len(targets) == 0 {
		return nil
	}

	m.cycle.Lock()
	defer m.cycle.Unlock()

	m.mu.Lock()
	m.checking = true
	if !m.started {
		m.started = true
		for _, t := range targets {
			m.statuses[t.Port] = domain.HealthChecking
		}
	}
	m.mu.Unlock()

	start := m.now()
	results := m.checker.CheckBatch(ctx, targets)
	if ctx.Err() != nil {
		m.setChecking(false)
		return results
	}

	classified := domain.Classify(results)

	m.mu.Lock()
	m.statuses = classified
	m.commitLocked()
	m.mu.Unlock()

	m.observe(ModeFull, results, start)
	return results
}

// CheckIncremental probes only targets whose port is not on the board yet
// and merges them in. New ports become network-error only when all of them
// fail and no known port is currently reachable.
func (m *Monitor) CheckIncremental(ctx context.Context, targets []domain.Target) []domain.ProbeResult {
	m.cycle.Lock()
	defer m.cycle.Unlock()

	m.mu.Lock()
	fresh := make([]domain.Target, 0, len(targets))
	for _, t := range domain.DistinctTargets(targets) {
		if _, known := m.statuses[t.Port]; known {
			continue
		}
		fresh = append(fresh, t)
	}
	if len(fresh) == 0 {
		m.mu.Unlock()
		return nil
	}
	knownReachable := m.anyReachableLocked()
	m.checking = true
	m.started = true
	for _, t := range fresh {
		m.statuses[t.Port] = domain.HealthChecking
	}
	m.mu.Unlock()

	start := m.now()
	results := m.checker.CheckBatch(ctx, fresh)
	if ctx.Err() != nil {
		m.mu.Lock()
		for _, t := range fresh {
			delete(m.statuses, t.Port)
		}
		m.checking = false
		m.mu.Unlock()
		return results
	}

	classified := domain.Classify(results)

	m.mu.Lock()
	for port, status := range classified {
		if status == domain.HealthNetworkError && knownReachable {
			status = domain.HealthUnreachable
		}
		m.statuses[port] = status
	}
	m.commitLocked()
	m.mu.Unlock()

	m.observe(ModeIncremental, results, start)
	return results
}

func (m *Monitor) commitLocked() {
	available := m.anyReachableLocked()
	m.networkAvailable = &available
	m.lastChecked = m.now()
	m.checking = false
}

func (m *Monitor) anyReachableLocked() bool {
	for _, s := range m.statuses {
		if s == domain.HealthReachable {
			return true
		}
	}
	return false
}

func (m *Monitor) setChecking(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checking = v
}

func (m *Monitor) observe(mode string, results []domain.ProbeResult, start time.Time) {
	if m.observer == nil {
		return
	}
	reachable := 0
	for _, r := range results {
		if r.Reachable {
			reachable++
		}
	}
	m.observer.CycleDone(mode, len(results), reachable, m.now().Sub(start))
}

// Status returns the board value for port, checking when unknown.
func (m *Monitor) Status(port int) domain.HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if s, ok := m.statuses[port]; ok {
		return s
	}
	return domain.HealthChecking
}

// Snapshot returns a copy of the board.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		Statuses:   make(map[int]domain.HealthStatus, len(m.statuses)),
		IsChecking: m.checking,
	}
	for port, s := range m.statuses {
		snap.Statuses[port] = s
	}
	if !m.lastChecked.IsZero() {
		t := m.lastChecked
		snap.LastChecked = &t
	}
	if m.networkAvailable != nil {
		v := *m.networkAvailable
		snap.NetworkAvailable = &v
	}
	return snap
}

// Annotate sets the Health field of each view from the board.
func (m *Monitor) Annotate(views []domain.ServiceView) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range views {
		if s, ok := m.statuses[views[i].Port]; ok {
			views[i].Health = s
		} else {
			views[i].Health = domain.HealthChecking
		}
	}
}
