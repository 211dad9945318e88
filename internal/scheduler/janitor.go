package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/portal/internal/logger"
	"github.com/MrSnakeDoc/portal/internal/portal"
)

// Pruner removes stale entries from the persisted documents.
type Pruner interface {
	Prune(ctx context.Context) (portal.PruneReport, error)
}

// StoreJanitor periodically drops no-op overrides and references to
// services that no longer exist.
type StoreJanitor struct {
	pruner   Pruner
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewStoreJanitor creates a new store janitor
func NewStoreJanitor(pruner Pruner, log logger.Logger, interval time.Duration) *StoreJanitor {
	return &StoreJanitor{
		pruner:   pruner,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup process
func (sj *StoreJanitor) Start(ctx context.Context) error {
	// Run immediately on start
	if err := sj.Collect(ctx); err != nil {
		sj.logger.Warn("initial store cleanup failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(sj.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := sj.Collect(ctx); err != nil {
					sj.logger.Error("store cleanup failed",
						logger.Error(err))
				}
			case <-sj.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the janitor
func (sj *StoreJanitor) Stop() {
	close(sj.stopCh)
}

// Collect runs one cleanup pass.
func (sj *StoreJanitor) Collect(ctx context.Context) error {
	report, err := sj.pruner.Prune(ctx)
	if err != nil {
		return err
	}

	if report.Total() > 0 {
		sj.logger.Info("store cleanup completed",
			logger.Int("noop_overrides", report.NoopOverrides),
			logger.Int("stale_overrides", report.StaleOverrides),
			logger.Int("stale_hidden", report.StaleHidden),
			logger.Int("stale_admin_only", report.StaleAdminOnly))
	} else {
		sj.logger.Debug("nothing to clean up in store")
	}

	return nil
}
