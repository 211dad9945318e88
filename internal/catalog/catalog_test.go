package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MrSnakeDoc/portal/internal/domain"
)

func TestLoaderLoadEmbedded(t *testing.T) {
	f, err := NewLoader("").Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	c, err := Build(f)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if c.Count() != 29 {
		t.Errorf("embedded catalog has %d services, want 29", c.Count())
	}
	if len(c.Categories()) != 4 {
		t.Errorf("embedded catalog has %d categories, want 4", len(c.Categories()))
	}

	svc, ok := c.Lookup("s7")
	if !ok {
		t.Fatal("Lookup(s7) not found")
	}
	if svc.Port != 8542 || svc.DefaultStatus != domain.StatusMaintenance || svc.Category != "main" {
		t.Errorf("Lookup(s7) = %+v", svc)
	}
}

func TestLoaderLoadFile(t *testing.T) {
	tmpDir := t.TempDir()
	yamlPath := filepath.Join(tmpDir, "catalog.yaml")

	yamlContent := `
categories:
  - id: tools
    label: Tools
services:
  - id: grafana
    name: Grafana
    port: 3000
    category: tools
`
	if err := os.WriteFile(yamlPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}

	f, err := NewLoader(yamlPath).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	c, err := Build(f)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	svc, ok := c.Lookup("grafana")
	if !ok {
		t.Fatal("grafana not found")
	}
	if svc.DefaultStatus != domain.StatusOnline {
		t.Errorf("missing defaultStatus should default to online, got %q", svc.DefaultStatus)
	}
}

func TestLoaderLoadFileNotFound(t *testing.T) {
	_, err := NewLoader("/nonexistent/path/catalog.yaml").Load()
	if err == nil {
		t.Error("Load() with non-existent file should return error")
	}
}

func TestBuildRejectsInvalidCatalogs(t *testing.T) {
	tools := []CategoryEntry{{ID: "tools"}}

	tests := []struct {
		name string
		file File
	}{
		{
			name: "empty catalog",
			file: File{Categories: tools},
		},
		{
			name: "duplicate service id",
			file: File{Categories: tools, Services: []ServiceEntry{
				{ID: "a", Name: "A", Port: 1, Category: "tools"},
				{ID: "a", Name: "B", Port: 2, Category: "tools"},
			}},
		},
		{
			name: "unknown category",
			file: File{Categories: tools, Services: []ServiceEntry{
				{ID: "a", Name: "A", Port: 1, Category: "nope"},
			}},
		},
		{
			name: "invalid port",
			file: File{Categories: tools, Services: []ServiceEntry{
				{ID: "a", Name: "A", Port: 70000, Category: "tools"},
			}},
		},
		{
			name: "invalid status",
			file: File{Categories: tools, Services: []ServiceEntry{
				{ID: "a", Name: "A", Port: 1, DefaultStatus: "down", Category: "tools"},
			}},
		},
		{
			name: "duplicate category",
			file: File{Categories: []CategoryEntry{{ID: "tools"}, {ID: "tools"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Build(tt.file); err == nil {
				t.Error("Build() should return error")
			}
		})
	}
}

func TestServicesReturnsCopy(t *testing.T) {
	f, _ := NewLoader("").Load()
	c, err := Build(f)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	services := c.Services()
	services[0].Name = "mutated"

	if got, _ := c.Lookup(services[0].ID); got.Name == "mutated" {
		t.Error("Services() exposed internal state")
	}
	if c.Services()[0].Name == "mutated" {
		t.Error("Services() exposed internal slice")
	}
}

func TestHolder(t *testing.T) {
	f, _ := NewLoader("").Load()
	first, _ := Build(f)
	h := NewHolder(first)

	if h.Load() != first {
		t.Fatal("Load() should return the initial catalog")
	}
	before := h.LastReload()

	second, _ := Build(File{
		Categories: []CategoryEntry{{ID: "tools"}},
		Services:   []ServiceEntry{{ID: "x", Name: "X", Port: 1, Category: "tools"}},
	})
	h.Store(second)

	if h.Load() != second {
		t.Error("Store() did not swap catalog")
	}
	if h.LastReload().Before(before) {
		t.Error("LastReload() went backwards")
	}
}
