package client

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/portal/internal/domain"
	"github.com/MrSnakeDoc/portal/internal/health"
	"github.com/MrSnakeDoc/portal/internal/logger"
)

// Options configures a Client.
type Options struct {
	// BaseURL of the portal API, e.g. "http://localhost:3001".
	BaseURL string
	// CacheDir holds the local fallback copies. Empty selects the user cache dir.
	CacheDir string
	Timeout  time.Duration
	// Logger receives swallowed sync failures. Defaults to a no-op logger.
	Logger logger.Logger
}

// Client bundles the API and one state container per concern.
type Client struct {
	API   *API
	Cache *Cache

	Custom    *CustomServices
	Status    *StatusOverrides
	Hidden    *IDSet
	AdminOnly *IDSet
	Health    *HealthMap
	Favorites *Favorites
	Session   *Session
}

// New builds a client. Containers hold their default value until Load.
func New(opts Options) (*Client, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	cache, err := NewCache(opts.CacheDir)
	if err != nil {
		return nil, err
	}
	api := NewAPI(opts.BaseURL, opts.Timeout)

	return &Client{
		API:   api,
		Cache: cache,
		Custom: &CustomServices{
			Container: newContainer(keyCustom, cache, log,
				func() []domain.CustomService { return []domain.CustomService{} },
				api.CustomServices),
			api: api,
			now: time.Now,
		},
		Status: &StatusOverrides{
			Container: newContainer(keyStatus, cache, log,
				func() domain.Overrides { return domain.Overrides{} },
				api.Overrides),
			api: api,
		},
		Hidden:    newIDSet(api, cache, log, SetHidden, keyHidden),
		AdminOnly: newIDSet(api, cache, log, SetAdminOnly, keyAdminOnly),
		Health: &HealthMap{
			Container: newContainer(keyHealth, cache, log, emptySnapshot,
				func(ctx context.Context) (health.Snapshot, uint64, error) {
					snap, err := api.HealthStatus(ctx)
					if snap.Statuses == nil {
						snap.Statuses = map[int]domain.HealthStatus{}
					}
					return snap, 0, err
				}),
			api: api,
		},
		Favorites: loadFavorites(cache),
		Session:   loadSession(api, cache, log, time.Now),
	}, nil
}

func newIDSet(api *API, cache *Cache, log logger.Logger, set Set, key string) *IDSet {
	return &IDSet{
		Container: newContainer(key, cache, log,
			func() []string { return []string{} },
			func(ctx context.Context) ([]string, uint64, error) {
				ids, rev, err := api.IDs(ctx, set)
				if ids == nil {
					ids = []string{}
				}
				return ids, rev, err
			}),
		api: api,
		set: set,
	}
}

// LoadAll refreshes every server-backed container.
func (c *Client) LoadAll(ctx context.Context) {
	c.Custom.Load(ctx)
	c.Status.Load(ctx)
	c.Hidden.Load(ctx)
	c.AdminOnly.Load(ctx)
	c.Health.Load(ctx)
}
