package portal

import (
	"context"

	"github.com/MrSnakeDoc/portal/internal/domain"
)

// Views returns the merged dashboard list for a viewer. admin selects
// whether admin-only services are included.
func (s *Service) Views(ctx context.Context, admin bool) ([]domain.ServiceView, error) {
	in, err := s.mergeInput(ctx)
	if err != nil {
		return nil, err
	}
	in.Admin = admin
	return domain.Merge(in), nil
}

func (s *Service) mergeInput(ctx context.Context) (domain.MergeInput, error) {
	custom, _, err := s.store.CustomServices(ctx)
	if err != nil {
		return domain.MergeInput{}, err
	}
	overrides, _, err := s.store.Overrides(ctx)
	if err != nil {
		return domain.MergeInput{}, err
	}
	hidden, _, err := s.store.Hidden(ctx)
	if err != nil {
		return domain.MergeInput{}, err
	}
	adminOnly, _, err := s.store.AdminOnly(ctx)
	if err != nil {
		return domain.MergeInput{}, err
	}

	return domain.MergeInput{
		BuiltIn:   s.catalog.Load().Services(),
		Custom:    custom,
		Overrides: overrides,
		Hidden:    hidden,
		AdminOnly: adminOnly,
	}, nil
}

// CategoryView is a category with its merged member ids.
type CategoryView struct {
	domain.Category
	Services []string `json:"services"`
}

// Categories returns catalog categories with membership merged from the
// catalog and custom service assignments.
func (s *Service) Categories(ctx context.Context) ([]CategoryView, error) {
	custom, _, err := s.store.CustomServices(ctx)
	if err != nil {
		return nil, err
	}
	cat := s.catalog.Load()
	members := domain.CategoryMembership(cat.Services(), custom)

	out := make([]CategoryView, 0, len(cat.Categories()))
	for _, c := range cat.Categories() {
		ids := members[c.ID]
		if ids == nil {
			ids = []string{}
		}
		out = append(out, CategoryView{Category: c, Services: ids})
	}
	return out, nil
}

// Targets returns the probe targets: built-in minus hidden, plus custom.
func (s *Service) Targets(ctx context.Context) ([]domain.Target, error) {
	custom, _, err := s.store.CustomServices(ctx)
	if err != nil {
		return nil, err
	}
	hidden, _, err := s.store.Hidden(ctx)
	if err != nil {
		return nil, err
	}
	return domain.Targets(s.catalog.Load().Services(), custom, hidden), nil
}
