package client

import (
	"context"
	"strings"
	"time"

	"github.com/MrSnakeDoc/portal/internal/domain"
	"github.com/MrSnakeDoc/portal/internal/health"
)

// Cache keys.
const (
	keyCustom    = "custom-services"
	keyStatus    = "status-overrides"
	keyHidden    = "hidden"
	keyAdminOnly = "admin-only"
	keyHealth    = "health"
	keyFavorites = "favorites"
	keySession   = "session"
)

// CustomServices holds the admin-defined services.
type CustomServices struct {
	*Container[[]domain.CustomService]
	api *API
	now func() time.Time
}

// Add creates a service and returns its id. When the API is unreachable the
// id is generated locally.
func (s *CustomServices) Add(ctx context.Context, f CustomFields) (string, error) {
	now := s.now()
	local := domain.CustomService{
		Service: domain.Service{
			ID:            domain.NewCustomID(now),
			DefaultStatus: domain.StatusOnline,
			Icon:          domain.DefaultCustomIcon,
			Category:      domain.DefaultCustomCategory,
		},
		CreatedAt: now.UTC(),
	}
	applyFields(&local.Service, f)

	id := local.ID
	err := s.mutate(ctx,
		func(v []domain.CustomService) []domain.CustomService {
			return append(append([]domain.CustomService(nil), v...), local)
		},
		func(ctx context.Context, v []domain.CustomService) ([]domain.CustomService, uint64, error) {
			created, rev, err := s.api.CreateCustom(ctx, f)
			if err != nil {
				return nil, 0, err
			}
			id = created.ID
			return replaceCustom(v, local.ID, created), rev, nil
		})
	return id, err
}

// Update applies the non-nil fields of f to service id.
func (s *CustomServices) Update(ctx context.Context, id string, f CustomFields) error {
	return s.mutate(ctx,
		func(v []domain.CustomService) []domain.CustomService {
			out := append([]domain.CustomService(nil), v...)
			for i := range out {
				if out[i].ID == id {
					applyFields(&out[i].Service, f)
				}
			}
			return out
		},
		func(ctx context.Context, v []domain.CustomService) ([]domain.CustomService, uint64, error) {
			updated, rev, err := s.api.UpdateCustom(ctx, id, f)
			if err != nil {
				return nil, 0, err
			}
			return replaceCustom(v, id, updated), rev, nil
		})
}

// Remove deletes service id.
func (s *CustomServices) Remove(ctx context.Context, id string) error {
	return s.mutate(ctx,
		func(v []domain.CustomService) []domain.CustomService {
			out := make([]domain.CustomService, 0, len(v))
			for _, svc := range v {
				if svc.ID != id {
					out = append(out, svc)
				}
			}
			return out
		},
		func(ctx context.Context, v []domain.CustomService) ([]domain.CustomService, uint64, error) {
			rev, err := s.api.DeleteCustom(ctx, id)
			return v, rev, err
		})
}

// ByCategory groups the custom service ids by category id.
func (s *CustomServices) ByCategory() map[string][]string {
	out := make(map[string][]string)
	for _, svc := range s.Value() {
		out[svc.Category] = append(out[svc.Category], svc.ID)
	}
	return out
}

func replaceCustom(v []domain.CustomService, id string, svc domain.CustomService) []domain.CustomService {
	out := append([]domain.CustomService(nil), v...)
	for i := range out {
		if out[i].ID == id {
			out[i] = svc
			return out
		}
	}
	return append(out, svc)
}

func applyFields(svc *domain.Service, f CustomFields) {
	if f.Name != nil {
		svc.Name = strings.TrimSpace(*f.Name)
	}
	if f.Description != nil {
		svc.Description = *f.Description
	}
	if f.Port != nil {
		svc.Port = *f.Port
	}
	if f.Path != nil {
		svc.Path = strings.TrimSpace(*f.Path)
	}
	if f.DefaultStatus != nil {
		svc.DefaultStatus = *f.DefaultStatus
	}
	if f.IconName != nil && *f.IconName != "" {
		svc.Icon = *f.IconName
	}
	if f.Category != nil && *f.Category != "" {
		svc.Category = *f.Category
	}
}

// StatusOverrides holds the per-service status overrides.
type StatusOverrides struct {
	*Container[domain.Overrides]
	api *API
}

// Set overrides the status of id. The server drops an override equal to
// the default status, so the map is re-read after the write.
func (s *StatusOverrides) Set(ctx context.Context, id string, status domain.Status) error {
	return s.mutate(ctx,
		func(v domain.Overrides) domain.Overrides {
			out := copyOverrides(v)
			out[id] = status
			return out
		},
		func(ctx context.Context, _ domain.Overrides) (domain.Overrides, uint64, error) {
			if _, err := s.api.SetStatus(ctx, id, status); err != nil {
				return nil, 0, err
			}
			return s.api.Overrides(ctx)
		})
}

// Clear removes the override of id.
func (s *StatusOverrides) Clear(ctx context.Context, id string) error {
	return s.mutate(ctx,
		func(v domain.Overrides) domain.Overrides {
			out := copyOverrides(v)
			delete(out, id)
			return out
		},
		func(ctx context.Context, v domain.Overrides) (domain.Overrides, uint64, error) {
			rev, err := s.api.ClearStatus(ctx, id)
			return v, rev, err
		})
}

// ClearAll removes every override.
func (s *StatusOverrides) ClearAll(ctx context.Context) error {
	return s.mutate(ctx,
		func(domain.Overrides) domain.Overrides { return domain.Overrides{} },
		func(ctx context.Context, v domain.Overrides) (domain.Overrides, uint64, error) {
			rev, err := s.api.ClearAllStatus(ctx)
			return v, rev, err
		})
}

// Resolve returns the status shown for id.
func (s *StatusOverrides) Resolve(id string, def domain.Status) domain.Status {
	return domain.ResolveStatus(s.Value(), id, def)
}

func copyOverrides(v domain.Overrides) domain.Overrides {
	out := make(domain.Overrides, len(v)+1)
	for k, st := range v {
		out[k] = st
	}
	return out
}

// IDSet holds one of the server-side id sets (hidden, admin-only).
type IDSet struct {
	*Container[[]string]
	api *API
	set Set
}

// Toggle flips membership of id. The server's answer replaces the local set.
func (s *IDSet) Toggle(ctx context.Context, id string) error {
	return s.mutate(ctx,
		func(v []string) []string { return domain.Toggle(v, id) },
		func(ctx context.Context, _ []string) ([]string, uint64, error) {
			ids, rev, err := s.api.ToggleID(ctx, s.set, id)
			if ids == nil {
				ids = []string{}
			}
			return ids, rev, err
		})
}

func (s *IDSet) Has(id string) bool { return domain.Contains(s.Value(), id) }

// HealthMap is the last known reachability board.
type HealthMap struct {
	*Container[health.Snapshot]
	api *API
}

// Status returns the health of port, "checking" when unknown.
func (h *HealthMap) Status(port int) domain.HealthStatus {
	if st, ok := h.Value().Statuses[port]; ok {
		return st
	}
	return domain.HealthChecking
}

// Recheck asks the server for a full cycle.
func (h *HealthMap) Recheck(ctx context.Context) error {
	return h.api.Recheck(ctx)
}

func emptySnapshot() health.Snapshot {
	return health.Snapshot{Statuses: map[int]domain.HealthStatus{}}
}
