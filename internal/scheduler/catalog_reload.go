package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/portal/internal/catalog"
	"github.com/MrSnakeDoc/portal/internal/logger"
)

// CatalogReloader handles periodic reloading of the service catalog
type CatalogReloader struct {
	loader        *catalog.Loader
	holder        *catalog.Holder
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewCatalogReloader creates a new catalog reloader
func NewCatalogReloader(
	catalogFile string,
	holder *catalog.Holder,
	log logger.Logger,
	interval time.Duration,
) *CatalogReloader {
	return &CatalogReloader{
		loader:        catalog.NewLoader(catalogFile),
		holder:        holder,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: make(chan struct{}, 1),
	}
}

// Start begins the periodic reload process
func (cr *CatalogReloader) Start(ctx context.Context) error {
	// The embedded catalog never changes
	if cr.loader.Path() == "" {
		cr.logger.Info("using built-in catalog, periodic reload disabled")
	}

	ticker := time.NewTicker(cr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if cr.loader.Path() == "" {
					continue
				}
				if err := cr.Reload(ctx); err != nil {
					cr.logger.Error("failed to reload catalog, keeping previous one",
						logger.Error(err))
				}
			case <-cr.manualTrigger:
				cr.logger.Info("manual catalog reload triggered")
				if err := cr.Reload(ctx); err != nil {
					cr.logger.Error("failed to reload catalog, keeping previous one",
						logger.Error(err))
				}
			case <-cr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader
func (cr *CatalogReloader) Stop() {
	close(cr.stopCh)
}

// Trigger queues a manual reload. It returns false when one is already queued.
func (cr *CatalogReloader) Trigger() bool {
	select {
	case cr.manualTrigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Reload reads and validates the catalog file, then swaps it in.
// On any error the current catalog stays in place.
func (cr *CatalogReloader) Reload(_ context.Context) error {
	file, err := cr.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	next, err := catalog.Build(file)
	if err != nil {
		return fmt.Errorf("failed to build catalog: %w", err)
	}

	cr.holder.Store(next)
	cr.logger.Info("catalog reloaded",
		logger.Int("services", next.Count()),
		logger.Int("categories", len(next.Categories())))

	return nil
}
