// Package file stores portal documents as JSON files in one directory.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MrSnakeDoc/portal/internal/fsatomic"
	"github.com/MrSnakeDoc/portal/internal/store"
)

type Backend struct {
	dir string
}

// New creates dir if needed and returns a backend rooted there.
func New(dir string) (*Backend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &Backend{dir: dir}, nil
}

func (b *Backend) Name() string { return "file" }

// Dir returns the data directory.
func (b *Backend) Dir() string { return b.dir }

// Path returns the file holding kind.
func (b *Backend) Path(kind store.Kind) string {
	return filepath.Join(b.dir, kind.Filename())
}

func (b *Backend) Load(_ context.Context, kind store.Kind) ([]byte, bool, error) {
	return fsatomic.ReadFile(b.Path(kind))
}

func (b *Backend) Save(_ context.Context, kind store.Kind, data []byte) error {
	return fsatomic.WriteFile(b.Path(kind), data, 0o600)
}

func (b *Backend) Ping(_ context.Context) error {
	info, err := os.Stat(b.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", b.dir)
	}
	return nil
}

// Export returns the raw bytes of every document present on disk.
func (b *Backend) Export(ctx context.Context) (map[store.Kind][]byte, error) {
	out := make(map[store.Kind][]byte, len(store.Kinds))
	for _, kind := range store.Kinds {
		data, exists, err := b.Load(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", kind.Filename(), err)
		}
		if exists {
			out[kind] = data
		}
	}
	return out, nil
}
