package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/portal/internal/catalog"
	"github.com/MrSnakeDoc/portal/internal/domain"
	"github.com/MrSnakeDoc/portal/internal/health"
	"github.com/MrSnakeDoc/portal/internal/logger"
	"github.com/MrSnakeDoc/portal/internal/portal"
	"github.com/MrSnakeDoc/portal/internal/store"
	"github.com/MrSnakeDoc/portal/internal/store/file"
	redisstore "github.com/MrSnakeDoc/portal/internal/store/redis"
)

const catalogYAML = `
categories:
  - id: tools
    label: Tools
services:
  - id: grafana
    name: Grafana
    port: 3000
    category: tools
`

func TestCatalogReloader_Reload(t *testing.T) {
	log := logger.New("error", false, logger.FileOptions{})
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(catalogYAML), 0o644); err != nil {
		t.Fatalf("Failed to write catalog: %v", err)
	}

	embedded, err := catalog.NewLoader("").Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	initial, err := catalog.Build(embedded)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	holder := catalog.NewHolder(initial)

	cr := NewCatalogReloader(path, holder, log, time.Hour)
	if err := cr.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if holder.Load().Count() != 1 {
		t.Fatalf("Expected 1 service after reload, got %d", holder.Load().Count())
	}

	// A broken file keeps the previous catalog
	if err := os.WriteFile(path, []byte("services: [\n"), 0o644); err != nil {
		t.Fatalf("Failed to write catalog: %v", err)
	}
	if err := cr.Reload(context.Background()); err == nil {
		t.Error("Reload() should fail on invalid yaml")
	}
	if _, ok := holder.Load().Lookup("grafana"); !ok {
		t.Error("previous catalog was replaced by a failed reload")
	}
}

func TestCatalogReloader_TriggerCoalesces(t *testing.T) {
	cr := NewCatalogReloader("", nil, logger.Nop(), time.Hour)

	if !cr.Trigger() {
		t.Error("first Trigger() should be queued")
	}
	if cr.Trigger() {
		t.Error("second Trigger() should report an already queued reload")
	}
}

type fakePruner struct {
	report portal.PruneReport
	err    error
	calls  int
}

func (f *fakePruner) Prune(context.Context) (portal.PruneReport, error) {
	f.calls++
	return f.report, f.err
}

func TestStoreJanitor_Collect(t *testing.T) {
	tests := []struct {
		name    string
		pruner  *fakePruner
		wantErr bool
	}{
		{"nothing to prune", &fakePruner{}, false},
		{"pruned entries", &fakePruner{report: portal.PruneReport{NoopOverrides: 2, StaleHidden: 1}}, false},
		{"store failure", &fakePruner{err: errors.New("disk full")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sj := NewStoreJanitor(tt.pruner, logger.Nop(), time.Hour)
			err := sj.Collect(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Collect() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.pruner.calls != 1 {
				t.Errorf("Prune called %d times", tt.pruner.calls)
			}
		})
	}
}

func TestDocumentSyncer_Sync(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	fb, err := file.New(t.TempDir())
	if err != nil {
		t.Fatalf("file.New() error = %v", err)
	}
	if err := fb.Save(ctx, store.KindHidden, []byte(`{"revision":3,"data":["s1"]}`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := fb.Save(ctx, store.KindAdminOnly, []byte(`{"revision":1,"data":["s2"]}`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	rb := redisstore.NewBackend(client)
	// Redis already holds a newer admin-only document
	if err := rb.Save(ctx, store.KindAdminOnly, []byte(`{"revision":9,"data":[]}`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := NewDocumentSyncer(fb, rb, logger.Nop()).Sync(ctx); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	got, ok, err := rb.Load(ctx, store.KindHidden)
	if err != nil || !ok || string(got) != `{"revision":3,"data":["s1"]}` {
		t.Errorf("hidden in redis = %q ok=%v err=%v", got, ok, err)
	}
	got, _, _ = rb.Load(ctx, store.KindAdminOnly)
	if string(got) != `{"revision":9,"data":[]}` {
		t.Errorf("existing redis document was overwritten: %q", got)
	}
}

type staticTargets struct {
	targets []domain.Target
	err     error
}

func (s *staticTargets) Targets(context.Context) ([]domain.Target, error) {
	return s.targets, s.err
}

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

func TestHealthPoller_Check(t *testing.T) {
	src := &staticTargets{targets: []domain.Target{{Port: 80}, {Port: 81}}}
	mon := health.NewMonitor(&upChecker{up: map[int]bool{80: true}}, nil)
	hp := NewHealthPoller(src, mon, logger.Nop(), time.Hour)

	if err := hp.Check(context.Background(), health.ModeFull); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if mon.Status(80) != domain.HealthReachable || mon.Status(81) != domain.HealthUnreachable {
		t.Errorf("statuses after full cycle = %v", mon.Snapshot().Statuses)
	}

	src.targets = append(src.targets, domain.Target{Port: 82})
	if err := hp.Check(context.Background(), health.ModeIncremental); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if mon.Status(82) != domain.HealthUnreachable {
		t.Errorf("Status(82) = %s, want unreachable", mon.Status(82))
	}

	src.err = errors.New("store down")
	if err := hp.Check(context.Background(), health.ModeFull); err == nil {
		t.Error("Check() should surface target errors")
	}
}

func TestHealthPoller_TriggerRecheck(t *testing.T) {
	hp := NewHealthPoller(&staticTargets{}, health.NewMonitor(&upChecker{}, nil), logger.Nop(), time.Hour)

	if !hp.TriggerRecheck() {
		t.Error("first TriggerRecheck() should be queued")
	}
	if hp.TriggerRecheck() {
		t.Error("second TriggerRecheck() should report an already queued check")
	}

	hp.TriggerIncremental()
	hp.TriggerIncremental()
}

func TestHealthPoller_StartRunsFirstCycle(t *testing.T) {
	src := &staticTargets{targets: []domain.Target{{Port: 80}}}
	mon := health.NewMonitor(&upChecker{up: map[int]bool{80: true}}, nil)
	hp := NewHealthPoller(src, mon, logger.Nop(), time.Hour)

	if err := hp.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer hp.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for mon.Snapshot().LastChecked == nil {
		if time.Now().After(deadline) {
			t.Fatal("first cycle did not run")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if mon.Status(80) != domain.HealthReachable {
		t.Errorf("Status(80) = %s", mon.Status(80))
	}

	hp.Stop()
	hp.Stop()
}
