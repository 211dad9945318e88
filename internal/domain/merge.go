package domain

import (
	"strconv"
	"strings"
)

// ServiceView is a service as rendered on the dashboard.
type ServiceView struct {
	Service
	Status    Status       `json:"status"`
	Custom    bool         `json:"custom"`
	AdminOnly bool         `json:"adminOnly"`
	Health    HealthStatus `json:"health,omitempty"`
}

// MergeInput is everything the dashboard merge depends on.
type MergeInput struct {
	BuiltIn   []Service
	Custom    []CustomService
	Overrides Overrides
	Hidden    []string
	AdminOnly []string

	// Admin is true when the viewer holds a valid admin session.
	Admin bool
}

// ResolveStatus returns the override for id if present, else def.
func ResolveStatus(overrides Overrides, id string, def Status) Status {
	if s, ok := overrides[id]; ok {
		return s
	}
	return def
}

// Merge builds the visible service list: built-ins minus hidden, then custom
// services, minus admin-only entries for anonymous viewers, each with its
// resolved status. The input is never modified.
func Merge(in MergeInput) []ServiceView {
	hidden := toSet(in.Hidden)
	adminOnly := toSet(in.AdminOnly)

	views := make([]ServiceView, 0, len(in.BuiltIn)+len(in.Custom))
	add := func(svc Service, custom bool) {
		restricted := adminOnly[svc.ID]
		if restricted && !in.Admin {
			return
		}
		views = append(views, ServiceView{
			Service:   svc,
			Status:    ResolveStatus(in.Overrides, svc.ID, svc.DefaultStatus),
			Custom:    custom,
			AdminOnly: restricted,
		})
	}

	for _, svc := range in.BuiltIn {
		if hidden[svc.ID] {
			continue
		}
		add(svc, false)
	}
	// Custom services cannot be hidden, only deleted.
	for _, svc := range in.Custom {
		add(svc.Service, true)
	}
	return views
}

// Filter narrows views by a free-text query and an optional category id.
//
// The query matches case-insensitively against name, description or the
// port rendered as a string. Empty query and empty category match everything.
func Filter(views []ServiceView, query, category string) []ServiceView {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]ServiceView, 0, len(views))
	for _, v := range views {
		if category != "" && v.Category != category {
			continue
		}
		if query != "" && !matches(v, query) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func matches(v ServiceView, query string) bool {
	return strings.Contains(strings.ToLower(v.Name), query) ||
		strings.Contains(strings.ToLower(v.Description), query) ||
		strings.Contains(strconv.Itoa(v.Port), query)
}

// CategoryMembership merges the catalog's category -> ids map with the
// category assignments of custom services. Catalog ids come first.
func CategoryMembership(builtIn []Service, custom []CustomService) map[string][]string {
	out := make(map[string][]string)
	for _, svc := range builtIn {
		out[svc.Category] = append(out[svc.Category], svc.ID)
	}
	for _, svc := range custom {
		out[svc.Category] = append(out[svc.Category], svc.ID)
	}
	return out
}

// Summary counts views per status.
type Summary struct {
	Online      int `json:"online"`
	Maintenance int `json:"maintenance"`
	Inactive    int `json:"inactive"`
	Total       int `json:"total"`
}

func Summarize(views []ServiceView) Summary {
	var s Summary
	for _, v := range views {
		switch v.Status {
		case StatusOnline:
			s.Online++
		case StatusMaintenance:
			s.Maintenance++
		case StatusInactive:
			s.Inactive++
		}
	}
	s.Total = len(views)
	return s
}

// Targets returns the distinct probe targets of built-in services minus
// hidden ones, plus every custom service.
func Targets(builtIn []Service, custom []CustomService, hiddenIDs []string) []Target {
	hidden := toSet(hiddenIDs)
	targets := make([]Target, 0, len(builtIn)+len(custom))
	for _, svc := range builtIn {
		if hidden[svc.ID] {
			continue
		}
		targets = append(targets, Target{Port: svc.Port, Path: svc.Path})
	}
	for _, svc := range custom {
		targets = append(targets, Target{Port: svc.Port, Path: svc.Path})
	}
	return DistinctTargets(targets)
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
