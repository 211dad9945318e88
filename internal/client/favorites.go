package client

import (
	"sync"

	"github.com/MrSnakeDoc/portal/internal/domain"
)

// Favorites is a personal list of service ids. It lives in the local cache
// only and is never sent to the server.
type Favorites struct {
	cache *Cache

	mu  sync.Mutex
	ids []string
}

func loadFavorites(cache *Cache) *Favorites {
	f := &Favorites{cache: cache, ids: []string{}}
	var ids []string
	if _, ok := cache.Decode(keyFavorites, &ids); ok {
		f.ids = domain.Dedupe(ids)
	}
	return f
}

// Toggle flips id and reports whether it is now a favorite.
func (f *Favorites) Toggle(id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ids = domain.Toggle(f.ids, id)
	return domain.Contains(f.ids, id), f.cache.Put(keyFavorites, f.ids, 0, false)
}

func (f *Favorites) Has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.Contains(f.ids, id)
}

// List returns the favorites in the order they were added.
func (f *Favorites) List() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ids...)
}
