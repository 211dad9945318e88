package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/MrSnakeDoc/portal/internal/fsatomic"
)

// Entry is one cached value with the server revision it was derived from.
type Entry struct {
	Revision uint64          `json:"revision"`
	Pending  bool            `json:"pending"`
	SavedAt  time.Time       `json:"savedAt"`
	Data     json.RawMessage `json:"data"`
}

// Cache keeps one JSON file per key in a directory.
type Cache struct {
	dir string
	now func() time.Time
}

// NewCache returns a cache rooted at dir. An empty dir selects
// <user cache dir>/portalctl.
func NewCache(dir string) (*Cache, error) {
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate cache dir: %w", err)
		}
		dir = filepath.Join(base, "portalctl")
	}
	return &Cache{dir: dir, now: time.Now}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Get loads the entry for key. A missing or unreadable entry reports ok=false.
func (c *Cache) Get(key string) (Entry, bool) {
	data, exists, err := fsatomic.ReadFile(c.path(key))
	if err != nil || !exists {
		return Entry{}, false
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil || len(e.Data) == 0 {
		return Entry{}, false
	}
	return e, true
}

// Decode loads key into v.
func (c *Cache) Decode(key string, v any) (Entry, bool) {
	e, ok := c.Get(key)
	if !ok {
		return Entry{}, false
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return Entry{}, false
	}
	return e, true
}

// Put stores v under key.
func (c *Cache) Put(key string, v any, rev uint64, pending bool) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return fsatomic.SaveJSON(c.path(key), Entry{
		Revision: rev,
		Pending:  pending,
		SavedAt:  c.now().UTC(),
		Data:     data,
	}, 0o600)
}

// Delete removes key. A missing key is not an error.
func (c *Cache) Delete(key string) error {
	err := os.Remove(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
