package domain

import (
	"reflect"
	"testing"
	"time"
)

func testBuiltIn() []Service {
	return []Service{
		{ID: "s1", Name: "OpenWeb UI", Description: "AI agent interface", Port: 8598, Path: "/openwebui", DefaultStatus: StatusOnline, Category: "agent"},
		{ID: "s2", Name: "News Briefing", Description: "Daily news digest", Port: 8501, Path: "/news", DefaultStatus: StatusOnline, Category: "main"},
		{ID: "s7", Name: "Report Review", Description: "Quality checks for reports", Port: 8542, Path: "/review", DefaultStatus: StatusMaintenance, Category: "main"},
		{ID: "s22", Name: "Market Analysis", Description: "Agri market analysis", Port: 8511, DefaultStatus: StatusInactive, Category: "inactive"},
	}
}

func testCustom() []CustomService {
	return []CustomService{
		{
			Service: Service{
				ID: "custom-1-abcd", Name: "Grafana", Description: "Dashboards", Port: 3000,
				DefaultStatus: StatusOnline, Category: "tools", Icon: DefaultCustomIcon,
			},
			CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		},
	}
}

func ids(views []ServiceView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.ID)
	}
	return out
}

func TestResolveStatus(t *testing.T) {
	overrides := Overrides{"s1": StatusMaintenance}

	if got := ResolveStatus(overrides, "s1", StatusOnline); got != StatusMaintenance {
		t.Errorf("ResolveStatus(s1) = %v, want maintenance", got)
	}
	if got := ResolveStatus(overrides, "s2", StatusOnline); got != StatusOnline {
		t.Errorf("ResolveStatus(s2) = %v, want online", got)
	}
	if got := ResolveStatus(nil, "s2", StatusInactive); got != StatusInactive {
		t.Errorf("ResolveStatus(nil overrides) = %v, want inactive", got)
	}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name    string
		input   MergeInput
		wantIDs []string
	}{
		{
			name:    "catalog plus custom",
			input:   MergeInput{BuiltIn: testBuiltIn(), Custom: testCustom()},
			wantIDs: []string{"s1", "s2", "s7", "s22", "custom-1-abcd"},
		},
		{
			name:    "hidden built-in dropped",
			input:   MergeInput{BuiltIn: testBuiltIn(), Custom: testCustom(), Hidden: []string{"s2"}},
			wantIDs: []string{"s1", "s7", "s22", "custom-1-abcd"},
		},
		{
			name:    "hidden does not apply to custom services",
			input:   MergeInput{BuiltIn: testBuiltIn(), Custom: testCustom(), Hidden: []string{"custom-1-abcd"}},
			wantIDs: []string{"s1", "s2", "s7", "s22", "custom-1-abcd"},
		},
		{
			name:    "admin-only invisible to anonymous viewers",
			input:   MergeInput{BuiltIn: testBuiltIn(), Custom: testCustom(), AdminOnly: []string{"s1", "custom-1-abcd"}},
			wantIDs: []string{"s2", "s7", "s22"},
		},
		{
			name:    "admin-only visible to admins",
			input:   MergeInput{BuiltIn: testBuiltIn(), Custom: testCustom(), AdminOnly: []string{"s1"}, Admin: true},
			wantIDs: []string{"s1", "s2", "s7", "s22", "custom-1-abcd"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Merge(tt.input))
			if !reflect.DeepEqual(got, tt.wantIDs) {
				t.Errorf("Merge() ids = %v, want %v", got, tt.wantIDs)
			}
		})
	}
}

func TestMergeResolvesStatus(t *testing.T) {
	views := Merge(MergeInput{
		BuiltIn:   testBuiltIn(),
		Custom:    testCustom(),
		Overrides: Overrides{"s1": StatusInactive, "custom-1-abcd": StatusMaintenance},
	})

	for _, v := range views {
		want := ResolveStatus(Overrides{"s1": StatusInactive, "custom-1-abcd": StatusMaintenance}, v.ID, v.DefaultStatus)
		if v.Status != want {
			t.Errorf("view %s status = %v, want %v", v.ID, v.Status, want)
		}
	}
	if views[0].Status != StatusInactive {
		t.Errorf("s1 status = %v, want inactive", views[0].Status)
	}
	if !views[len(views)-1].Custom {
		t.Error("last view should be flagged custom")
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	in := MergeInput{BuiltIn: testBuiltIn(), Custom: testCustom(), Overrides: Overrides{}}

	first := Merge(in)
	second := Merge(in)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Merge() not idempotent:\n first=%v\nsecond=%v", first, second)
	}
	if len(in.Overrides) != 0 {
		t.Errorf("Merge() mutated overrides: %v", in.Overrides)
	}
}

func TestFilter(t *testing.T) {
	views := Merge(MergeInput{BuiltIn: testBuiltIn(), Custom: testCustom()})

	tests := []struct {
		name     string
		query    string
		category string
		wantIDs  []string
	}{
		{name: "empty query keeps all", wantIDs: []string{"s1", "s2", "s7", "s22", "custom-1-abcd"}},
		{name: "name match is case-insensitive", query: "openweb", wantIDs: []string{"s1"}},
		{name: "description match", query: "DIGEST", wantIDs: []string{"s2"}},
		{name: "port match", query: "854", wantIDs: []string{"s7"}},
		{name: "surrounding whitespace ignored", query: "  grafana ", wantIDs: []string{"custom-1-abcd"}},
		{name: "category filter", category: "main", wantIDs: []string{"s2", "s7"}},
		{name: "query and category", query: "report", category: "main", wantIDs: []string{"s7"}},
		{name: "no match", query: "zzz", wantIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Filter(views, tt.query, tt.category))
			if !reflect.DeepEqual(got, tt.wantIDs) {
				t.Errorf("Filter(%q, %q) = %v, want %v", tt.query, tt.category, got, tt.wantIDs)
			}
		})
	}
}

func TestCategoryMembership(t *testing.T) {
	got := CategoryMembership(testBuiltIn(), testCustom())

	want := map[string][]string{
		"agent":    {"s1"},
		"main":     {"s2", "s7"},
		"inactive": {"s22"},
		"tools":    {"custom-1-abcd"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CategoryMembership() = %v, want %v", got, want)
	}
}

func TestSummarize(t *testing.T) {
	views := Merge(MergeInput{BuiltIn: testBuiltIn(), Custom: testCustom(), Overrides: Overrides{"s2": StatusInactive}})
	got := Summarize(views)

	want := Summary{Online: 2, Maintenance: 1, Inactive: 2, Total: 5}
	if got != want {
		t.Errorf("Summarize() = %+v, want %+v", got, want)
	}
}

func TestTargets(t *testing.T) {
	builtIn := append(testBuiltIn(), Service{ID: "dup", Port: 8598, Path: "/openwebui"})
	got := Targets(builtIn, testCustom(), []string{"s22"})

	want := []Target{
		{Port: 8598, Path: "/openwebui"},
		{Port: 8501, Path: "/news"},
		{Port: 8542, Path: "/review"},
		{Port: 3000},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Targets() = %v, want %v", got, want)
	}
}
