package catalog

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/MrSnakeDoc/portal/internal/domain"
)

// Catalog is the immutable table of built-in services and categories.
// It is built once and shared by reference; a reload produces a new value.
type Catalog struct {
	categories []domain.Category
	services   []domain.Service
	byID       map[string]domain.Service
}

// Build converts a parsed File into a Catalog, rejecting duplicate ids,
// invalid ports or statuses and services pointing at unknown categories.
func Build(f File) (*Catalog, error) {
	c := &Catalog{
		categories: make([]domain.Category, 0, len(f.Categories)),
		services:   make([]domain.Service, 0, len(f.Services)),
		byID:       make(map[string]domain.Service, len(f.Services)),
	}

	known := make(map[string]bool, len(f.Categories))
	for _, e := range f.Categories {
		if e.ID == "" {
			return nil, fmt.Errorf("category without id")
		}
		if known[e.ID] {
			return nil, fmt.Errorf("duplicate category id %q", e.ID)
		}
		known[e.ID] = true
		c.categories = append(c.categories, domain.Category{
			ID:       e.ID,
			Label:    e.Label,
			Sublabel: e.Sublabel,
			Color:    e.Color,
			Icon:     e.Icon,
		})
	}

	for _, e := range f.Services {
		svc, err := mapService(e)
		if err != nil {
			return nil, err
		}
		if _, dup := c.byID[svc.ID]; dup {
			return nil, fmt.Errorf("duplicate service id %q", svc.ID)
		}
		if !known[svc.Category] {
			return nil, fmt.Errorf("service %q references unknown category %q", svc.ID, svc.Category)
		}
		c.services = append(c.services, svc)
		c.byID[svc.ID] = svc
	}

	if len(c.services) == 0 {
		return nil, fmt.Errorf("no services found in catalog")
	}
	return c, nil
}

func mapService(e ServiceEntry) (domain.Service, error) {
	if e.ID == "" || e.Name == "" {
		return domain.Service{}, fmt.Errorf("service entry needs id and name (id=%q)", e.ID)
	}
	if e.Port <= 0 || e.Port > 65535 {
		return domain.Service{}, fmt.Errorf("service %q has invalid port %d", e.ID, e.Port)
	}
	status := domain.Status(e.DefaultStatus)
	if e.DefaultStatus == "" {
		status = domain.StatusOnline
	}
	if !status.Valid() {
		return domain.Service{}, fmt.Errorf("service %q has invalid defaultStatus %q", e.ID, e.DefaultStatus)
	}
	return domain.Service{
		ID:            e.ID,
		Name:          e.Name,
		Description:   e.Description,
		Port:          e.Port,
		Path:          e.Path,
		DefaultStatus: status,
		Icon:          e.Icon,
		Category:      e.Category,
	}, nil
}

// Services returns a copy of the built-in services in catalog order.
func (c *Catalog) Services() []domain.Service {
	out := make([]domain.Service, len(c.services))
	copy(out, c.services)
	return out
}

// Categories returns a copy of the categories in catalog order.
func (c *Catalog) Categories() []domain.Category {
	out := make([]domain.Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// Lookup returns the built-in service with the given id.
func (c *Catalog) Lookup(id string) (domain.Service, bool) {
	svc, ok := c.byID[id]
	return svc, ok
}

// Count returns the number of built-in services.
func (c *Catalog) Count() int { return len(c.services) }

// Holder publishes the current catalog to concurrent readers.
type Holder struct {
	current    atomic.Pointer[Catalog]
	lastReload atomic.Int64
}

// NewHolder returns a holder serving c.
func NewHolder(c *Catalog) *Holder {
	h := &Holder{}
	h.Store(c)
	return h
}

// Load returns the current catalog.
func (h *Holder) Load() *Catalog { return h.current.Load() }

// Store replaces the current catalog.
func (h *Holder) Store(c *Catalog) {
	h.current.Store(c)
	h.lastReload.Store(time.Now().UnixNano())
}

// LastReload returns when the catalog was last replaced.
func (h *Holder) LastReload() time.Time {
	return time.Unix(0, h.lastReload.Load())
}
