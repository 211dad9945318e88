// Package portal implements the admin operations over the persisted documents.
//
// Every operation performs at most one read-modify-write of one document and
// returns the revision of the document it read or wrote. Concurrent writers
// race; the later write wins.
package portal

import (
	"context"
	"strings"
	"time"

	"github.com/MrSnakeDoc/portal/internal/catalog"
	"github.com/MrSnakeDoc/portal/internal/domain"
	"github.com/MrSnakeDoc/portal/internal/logger"
	"github.com/MrSnakeDoc/portal/internal/store"
)

// Service is the portal's application layer.
type Service struct {
	store   *store.Store
	catalog *catalog.Holder
	log     logger.Logger
	now     func() time.Time

	// adminPassword seeds the credential whenever admin.json is missing or
	// unreadable. Empty means a random password is generated.
	adminPassword string

	// customChanged runs after a custom service is created or updated.
	customChanged func()
}

// New creates the portal service.
func New(st *store.Store, cat *catalog.Holder, log logger.Logger) *Service {
	return &Service{
		store:   st,
		catalog: cat,
		log:     log,
		now:     time.Now,
	}
}

// OnCustomChanged registers fn to run after a custom service is created or
// updated. fn must not block.
func (s *Service) OnCustomChanged(fn func()) { s.customChanged = fn }

func (s *Service) notifyCustomChanged() {
	if s.customChanged != nil {
		s.customChanged()
	}
}

// Catalog returns the current catalog.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog.Load() }

// CustomInput carries the fields of a custom service create or update.
// Nil fields are left unchanged on update and defaulted on create.
type CustomInput struct {
	Name          *string
	Description   *string
	Port          *int
	Path          *string
	DefaultStatus *domain.Status
	Icon          *string
	Category      *string
}

func (s *Service) validateCustom(in CustomInput) error {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return invalid("name must not be empty")
	}
	if in.Port != nil && (*in.Port <= 0 || *in.Port > 65535) {
		return invalid("port must be an integer between 1 and 65535")
	}
	if in.DefaultStatus != nil && !in.DefaultStatus.Valid() {
		return invalid("defaultStatus must be online, maintenance, or inactive")
	}
	if in.Category != nil && *in.Category != "" && !s.knownCategory(*in.Category) {
		return invalid("unknown category " + *in.Category)
	}
	return nil
}

func (s *Service) knownCategory(id string) bool {
	for _, c := range s.catalog.Load().Categories() {
		if c.ID == id {
			return true
		}
	}
	return false
}

// ListCustom returns all custom services.
func (s *Service) ListCustom(ctx context.Context) ([]domain.CustomService, uint64, error) {
	return s.store.CustomServices(ctx)
}

// CreateCustom appends a new custom service. Name and port are required.
func (s *Service) CreateCustom(ctx context.Context, in CustomInput) (domain.CustomService, uint64, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" || in.Port == nil {
		return domain.CustomService{}, 0, invalid("name and port are required")
	}
	if err := s.validateCustom(in); err != nil {
		return domain.CustomService{}, 0, err
	}

	services, rev, err := s.store.CustomServices(ctx)
	if err != nil {
		return domain.CustomService{}, 0, err
	}

	now := s.now()
	svc := domain.CustomService{
		Service: domain.Service{
			ID:            domain.NewCustomID(now),
			Name:          strings.TrimSpace(*in.Name),
			Port:          *in.Port,
			DefaultStatus: domain.StatusOnline,
			Icon:          domain.DefaultCustomIcon,
			Category:      domain.DefaultCustomCategory,
		},
		CreatedAt: now.UTC(),
	}
	applyOptional(&svc.Service, in)

	rev, err = s.store.PutCustomServices(ctx, append(services, svc), rev)
	if err != nil {
		return domain.CustomService{}, 0, err
	}

	s.log.Info("custom service created",
		logger.String("id", svc.ID),
		logger.String("name", svc.Name),
		logger.Int("port", svc.Port))
	s.notifyCustomChanged()
	return svc, rev, nil
}

// applyOptional copies the fields name and port do not cover. Empty optional
// strings fall back to the creation defaults.
func applyOptional(svc *domain.Service, in CustomInput) {
	if in.Description != nil {
		svc.Description = *in.Description
	}
	if in.Path != nil {
		svc.Path = strings.TrimSpace(*in.Path)
	}
	if in.DefaultStatus != nil {
		svc.DefaultStatus = *in.DefaultStatus
	}
	if in.Icon != nil && *in.Icon != "" {
		svc.Icon = *in.Icon
	}
	if in.Category != nil && *in.Category != "" {
		svc.Category = *in.Category
	}
}

// UpdateCustom applies the non-nil fields of in to the custom service id.
func (s *Service) UpdateCustom(ctx context.Context, id string, in CustomInput) (domain.CustomService, uint64, error) {
	if err := s.validateCustom(in); err != nil {
		return domain.CustomService{}, 0, err
	}

	services, rev, err := s.store.CustomServices(ctx)
	if err != nil {
		return domain.CustomService{}, 0, err
	}

	idx := indexOfCustom(services, id)
	if idx < 0 {
		return domain.CustomService{}, rev, notFound("service not found")
	}

	svc := &services[idx]
	if in.Name != nil {
		svc.Name = strings.TrimSpace(*in.Name)
	}
	if in.Port != nil {
		svc.Port = *in.Port
	}
	applyOptional(&svc.Service, in)

	rev, err = s.store.PutCustomServices(ctx, services, rev)
	if err != nil {
		return domain.CustomService{}, 0, err
	}

	s.log.Info("custom service updated", logger.String("id", id))
	s.notifyCustomChanged()
	return *svc, rev, nil
}

// DeleteCustom removes the custom service id.
func (s *Service) DeleteCustom(ctx context.Context, id string) (uint64, error) {
	services, rev, err := s.store.CustomServices(ctx)
	if err != nil {
		return 0, err
	}

	idx := indexOfCustom(services, id)
	if idx < 0 {
		return rev, notFound("service not found")
	}

	kept := make([]domain.CustomService, 0, len(services)-1)
	kept = append(kept, services[:idx]...)
	kept = append(kept, services[idx+1:]...)

	rev, err = s.store.PutCustomServices(ctx, kept, rev)
	if err != nil {
		return 0, err
	}
	s.log.Info("custom service deleted", logger.String("id", id))
	return rev, nil
}

func indexOfCustom(services []domain.CustomService, id string) int {
	for i := range services {
		if services[i].ID == id {
			return i
		}
	}
	return -1
}

// ListOverrides returns the full status override map.
func (s *Service) ListOverrides(ctx context.Context) (domain.Overrides, uint64, error) {
	return s.store.Overrides(ctx)
}

// SetOverride sets the displayed status of id. Setting a known service back
// to its default status removes the override instead.
func (s *Service) SetOverride(ctx context.Context, id string, status domain.Status) (uint64, error) {
	if !status.Valid() {
		return 0, invalid("status must be online, maintenance, or inactive")
	}
	if id == "" {
		return 0, invalid("id is required")
	}

	overrides, rev, err := s.store.Overrides(ctx)
	if err != nil {
		return 0, err
	}

	def, known, err := s.defaultStatus(ctx, id)
	if err != nil {
		return 0, err
	}
	if known && def == status {
		delete(overrides, id)
	} else {
		overrides[id] = status
	}

	return s.store.PutOverrides(ctx, overrides, rev)
}

// defaultStatus looks id up in the catalog, then in the custom services.
func (s *Service) defaultStatus(ctx context.Context, id string) (domain.Status, bool, error) {
	if svc, ok := s.catalog.Load().Lookup(id); ok {
		return svc.DefaultStatus, true, nil
	}
	if !strings.HasPrefix(id, "custom-") {
		return "", false, nil
	}
	custom, _, err := s.store.CustomServices(ctx)
	if err != nil {
		return "", false, err
	}
	if idx := indexOfCustom(custom, id); idx >= 0 {
		return custom[idx].DefaultStatus, true, nil
	}
	return "", false, nil
}

// ClearOverride removes the override for id. Clearing an absent id succeeds.
func (s *Service) ClearOverride(ctx context.Context, id string) (uint64, error) {
	overrides, rev, err := s.store.Overrides(ctx)
	if err != nil {
		return 0, err
	}
	delete(overrides, id)
	return s.store.PutOverrides(ctx, overrides, rev)
}

// ClearOverrides removes every override.
func (s *Service) ClearOverrides(ctx context.Context) (uint64, error) {
	_, rev, err := s.store.Overrides(ctx)
	if err != nil {
		return 0, err
	}
	return s.store.PutOverrides(ctx, domain.Overrides{}, rev)
}

// ListAdminOnly returns the admin-only id set.
func (s *Service) ListAdminOnly(ctx context.Context) ([]string, uint64, error) {
	return s.store.AdminOnly(ctx)
}

// ToggleAdminOnly flips membership of id and returns the updated set.
func (s *Service) ToggleAdminOnly(ctx context.Context, id string) ([]string, uint64, error) {
	if id == "" {
		return nil, 0, invalid("id is required")
	}
	ids, rev, err := s.store.AdminOnly(ctx)
	if err != nil {
		return nil, 0, err
	}
	ids = domain.Toggle(ids, id)
	rev, err = s.store.PutAdminOnly(ctx, ids, rev)
	if err != nil {
		return nil, 0, err
	}
	return ids, rev, nil
}

// ListHidden returns the hidden id set.
func (s *Service) ListHidden(ctx context.Context) ([]string, uint64, error) {
	return s.store.Hidden(ctx)
}

// ToggleHidden flips membership of id and returns the updated set. Only
// built-in services are affected by the hidden set when merging.
func (s *Service) ToggleHidden(ctx context.Context, id string) ([]string, uint64, error) {
	if id == "" {
		return nil, 0, invalid("id is required")
	}
	ids, rev, err := s.store.Hidden(ctx)
	if err != nil {
		return nil, 0, err
	}
	ids = domain.Toggle(ids, id)
	rev, err = s.store.PutHidden(ctx, ids, rev)
	if err != nil {
		return nil, 0, err
	}
	return ids, rev, nil
}
