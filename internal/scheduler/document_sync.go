package scheduler

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/portal/internal/logger"
	"github.com/MrSnakeDoc/portal/internal/store"
)

// DocumentSource exports the raw documents of a store backend.
type DocumentSource interface {
	Export(ctx context.Context) (map[store.Kind][]byte, error)
}

// DocumentSink imports raw documents, keeping those it already holds.
type DocumentSink interface {
	Import(ctx context.Context, docs map[store.Kind][]byte) ([]store.Kind, error)
}

// DocumentSyncer seeds the redis backend from a data directory on startup,
// so switching PORTAL_STORE_BACKEND keeps existing state.
type DocumentSyncer struct {
	source DocumentSource
	sink   DocumentSink
	logger logger.Logger
}

// NewDocumentSyncer creates a new document syncer
func NewDocumentSyncer(source DocumentSource, sink DocumentSink, log logger.Logger) *DocumentSyncer {
	return &DocumentSyncer{
		source: source,
		sink:   sink,
		logger: log,
	}
}

// Sync copies documents missing from the sink
func (ds *DocumentSyncer) Sync(ctx context.Context) error {
	docs, err := ds.source.Export(ctx)
	if err != nil {
		return fmt.Errorf("failed to export documents: %w", err)
	}

	if len(docs) == 0 {
		ds.logger.Info("no documents to sync")
		return nil
	}

	written, err := ds.sink.Import(ctx, docs)
	if err != nil {
		return err
	}

	names := make([]string, len(written))
	for i, k := range written {
		names[i] = string(k)
	}
	ds.logger.Info("synced documents",
		logger.Int("found", len(docs)),
		logger.Strings("imported", names))

	return nil
}
