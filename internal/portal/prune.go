package portal

import (
	"context"

	"github.com/MrSnakeDoc/portal/internal/domain"
)

// PruneReport counts what Prune removed.
type PruneReport struct {
	NoopOverrides  int
	StaleOverrides int
	StaleHidden    int
	StaleAdminOnly int
}

// Total returns the number of removed entries.
func (r PruneReport) Total() int {
	return r.NoopOverrides + r.StaleOverrides + r.StaleHidden + r.StaleAdminOnly
}

// Prune removes overrides equal to their service's default status and ids
// that no longer name a built-in or custom service. Documents are only
// rewritten when something changed.
func (s *Service) Prune(ctx context.Context) (PruneReport, error) {
	var report PruneReport

	custom, _, err := s.store.CustomServices(ctx)
	if err != nil {
		return report, err
	}

	defaults := make(map[string]domain.Status)
	for _, svc := range s.catalog.Load().Services() {
		defaults[svc.ID] = svc.DefaultStatus
	}
	for _, svc := range custom {
		defaults[svc.ID] = svc.DefaultStatus
	}

	overrides, rev, err := s.store.Overrides(ctx)
	if err != nil {
		return report, err
	}
	for id, status := range overrides {
		def, known := defaults[id]
		switch {
		case !known:
			delete(overrides, id)
			report.StaleOverrides++
		case def == status:
			delete(overrides, id)
			report.NoopOverrides++
		}
	}
	if report.NoopOverrides+report.StaleOverrides > 0 {
		if _, err := s.store.PutOverrides(ctx, overrides, rev); err != nil {
			return report, err
		}
	}

	hidden, rev, err := s.store.Hidden(ctx)
	if err != nil {
		return report, err
	}
	if kept := keepKnown(hidden, defaults); len(kept) != len(hidden) {
		report.StaleHidden = len(hidden) - len(kept)
		if _, err := s.store.PutHidden(ctx, kept, rev); err != nil {
			return report, err
		}
	}

	adminOnly, rev, err := s.store.AdminOnly(ctx)
	if err != nil {
		return report, err
	}
	if kept := keepKnown(adminOnly, defaults); len(kept) != len(adminOnly) {
		report.StaleAdminOnly = len(adminOnly) - len(kept)
		if _, err := s.store.PutAdminOnly(ctx, kept, rev); err != nil {
			return report, err
		}
	}

	return report, nil
}

func keepKnown(ids []string, known map[string]domain.Status) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := known[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
