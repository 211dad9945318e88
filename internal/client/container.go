package client

import (
	"context"
	"errors"
	"sync"

	"github.com/MrSnakeDoc/portal/internal/logger"
)

// Source tells where a container's current value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceCache   Source = "cache"
	SourceAPI     Source = "api"
)

type (
	fetchFunc[T any]  func(ctx context.Context) (T, uint64, error)
	remoteFunc[T any] func(ctx context.Context, local T) (T, uint64, error)
)

// Container holds the client view of one server document.
//
// Load prefers the API and falls back to the cached copy, then to the
// default. Mutations apply locally first and are then mirrored to the API.
// When the API cannot be reached the failure is logged, the local value is
// kept and the cache entry stays pending until the next successful Load
// replaces it. A change the server rejects with a 4xx is rolled back.
type Container[T any] struct {
	key   string
	cache *Cache
	log   logger.Logger
	def   func() T
	fetch fetchFunc[T]

	mu       sync.Mutex
	value    T
	rev      uint64
	pending  bool
	diverged bool
	source   Source
}

func newContainer[T any](key string, cache *Cache, log logger.Logger, def func() T, fetch fetchFunc[T]) *Container[T] {
	return &Container[T]{
		key:    key,
		cache:  cache,
		log:    log,
		def:    def,
		fetch:  fetch,
		value:  def(),
		source: SourceDefault,
	}
}

// Load refreshes the value. It never fails: an unreachable API degrades to
// the cache or the default.
func (c *Container[T]) Load(ctx context.Context) {
	v, rev, err := c.fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.log.Warn("API unavailable, using local copy",
			logger.String("key", c.key), logger.Error(err))
		c.loadCachedLocked()
		return
	}

	// Server truth wins. A pending local change or a revision the cache has
	// not seen means the local copy had drifted.
	c.diverged = false
	if cached, ok := c.cache.Get(c.key); ok {
		c.diverged = cached.Pending || cached.Revision != rev
	}
	c.value, c.rev, c.pending, c.source = v, rev, false, SourceAPI
	c.saveLocked()
}

func (c *Container[T]) loadCachedLocked() {
	var v T
	if e, ok := c.cache.Decode(c.key, &v); ok {
		c.value, c.rev, c.pending, c.source = v, e.Revision, e.Pending, SourceCache
		return
	}
	c.value, c.rev, c.pending, c.source = c.def(), 0, false, SourceDefault
}

func (c *Container[T]) saveLocked() {
	if err := c.cache.Put(c.key, c.value, c.rev, c.pending); err != nil {
		c.log.Warn("failed to write local cache",
			logger.String("key", c.key), logger.Error(err))
	}
}

// mutate applies local, then mirrors it with remote. remote receives the
// optimistic value and returns the value to keep on success. It returns the
// mirror error, which callers may ignore.
func (c *Container[T]) mutate(ctx context.Context, local func(T) T, remote remoteFunc[T]) error {
	c.mu.Lock()
	prev, prevPending := c.value, c.pending
	c.value = local(c.value)
	c.pending = true
	optimistic := c.value
	c.saveLocked()
	c.mu.Unlock()

	v, rev, err := remote(ctx, optimistic)

	c.mu.Lock()
	defer c.mu.Unlock()
	if Rejected(err) {
		// The server answered and refused: the change will never apply.
		c.value, c.pending = prev, prevPending
		c.saveLocked()
		return err
	}
	if err != nil {
		c.log.Warn("failed to sync change, keeping local value",
			logger.String("key", c.key), logger.Error(err))
		return err
	}
	c.value, c.rev, c.pending = v, rev, false
	c.saveLocked()
	return nil
}

// Rejected reports whether err is a client error answered by the server.
func Rejected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500
}

// Value returns the current value. Callers must not modify it.
func (c *Container[T]) Value() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Revision is the server revision the value was derived from.
func (c *Container[T]) Revision() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rev
}

// Pending reports whether a local change has not reached the server.
func (c *Container[T]) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Diverged reports whether the last successful Load replaced a local copy
// that no longer matched the server.
func (c *Container[T]) Diverged() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.diverged
}

func (c *Container[T]) Source() Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source
}
