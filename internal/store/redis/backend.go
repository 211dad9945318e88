package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/portal/internal/store"
	"github.com/redis/go-redis/v9"
)

// Backend stores each document envelope as a plain string key.
// Keys never expire.
type Backend struct {
	client *redis.Client
}

// NewBackend creates a new Redis document backend
func NewBackend(client *redis.Client) *Backend {
	return &Backend{
		client: client,
	}
}

func (b *Backend) Name() string { return "redis" }

// Load retrieves a document from Redis
func (b *Backend) Load(ctx context.Context, kind store.Kind) ([]byte, bool, error) {
	data, err := b.client.Get(ctx, DocKey(kind)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get document: %w", err)
	}
	return data, true, nil
}

// Save stores a document in Redis
func (b *Backend) Save(ctx context.Context, kind store.Kind, data []byte) error {
	if err := b.client.Set(ctx, DocKey(kind), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// Ping checks the connection
func (b *Backend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Import copies documents into Redis in a single pipeline, skipping kinds
// that already exist. It returns the kinds written.
func (b *Backend) Import(ctx context.Context, docs map[store.Kind][]byte) ([]store.Kind, error) {
	pipe := b.client.Pipeline()
	cmds := make(map[store.Kind]*redis.BoolCmd, len(docs))
	for kind, data := range docs {
		cmds[kind] = pipe.SetNX(ctx, DocKey(kind), data, 0)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to import documents: %w", err)
	}

	written := make([]store.Kind, 0, len(cmds))
	for _, kind := range store.Kinds {
		if cmd, ok := cmds[kind]; ok && cmd.Val() {
			written = append(written, kind)
		}
	}
	return written, nil
}

// Kinds lists the document kinds present in Redis
func (b *Backend) Kinds(ctx context.Context) ([]store.Kind, error) {
	var kinds []store.Kind
	iter := b.client.Scan(ctx, 0, KeyPrefixDoc+"*", 0).Iterator()
	for iter.Next(ctx) {
		kind, err := ExtractKind(iter.Val())
		if err != nil {
			continue
		}
		kinds = append(kinds, kind)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan documents: %w", err)
	}
	return kinds, nil
}
