package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/portal/internal/domain"
	"github.com/MrSnakeDoc/portal/internal/health"
	"github.com/MrSnakeDoc/portal/internal/logger"
)

// TargetSource lists the ports the poller should probe.
type TargetSource interface {
	Targets(ctx context.Context) ([]domain.Target, error)
}

// HealthPoller drives the health monitor: a full cycle on start, on every
// tick and on manual trigger, and an incremental cycle when new targets
// may have appeared.
type HealthPoller struct {
	targets  TargetSource
	monitor  *health.Monitor
	logger   logger.Logger
	interval time.Duration

	stopCh        chan struct{}
	stopOnce      sync.Once
	manualTrigger chan struct{}
	incremental   chan struct{}
}

// NewHealthPoller creates a new health poller
func NewHealthPoller(
	targets TargetSource,
	monitor *health.Monitor,
	log logger.Logger,
	interval time.Duration,
) *HealthPoller {
	return &HealthPoller{
		targets:       targets,
		monitor:       monitor,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: make(chan struct{}, 1),
		incremental:   make(chan struct{}, 1),
	}
}

// Start runs the first full cycle in the background and schedules the next ones.
func (hp *HealthPoller) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		defer cancel()

		hp.run(ctx, health.ModeFull)

		ticker := time.NewTicker(hp.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				hp.run(ctx, health.ModeFull)
			case <-hp.manualTrigger:
				hp.logger.Info("manual health recheck triggered")
				hp.run(ctx, health.ModeFull)
			case <-hp.incremental:
				hp.run(ctx, health.ModeIncremental)
			case <-hp.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	// Abort an in-flight cycle as soon as Stop is called
	go func() {
		select {
		case <-hp.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	return nil
}

// Stop stops the poller. It is safe to call more than once.
func (hp *HealthPoller) Stop() {
	hp.stopOnce.Do(func() { close(hp.stopCh) })
}

// TriggerRecheck queues a full cycle. It returns false when one is already queued.
func (hp *HealthPoller) TriggerRecheck() bool {
	select {
	case hp.manualTrigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// TriggerIncremental queues an incremental cycle; repeated calls coalesce.
func (hp *HealthPoller) TriggerIncremental() {
	select {
	case hp.incremental <- struct{}{}:
	default:
	}
}

// Check runs one cycle synchronously.
func (hp *HealthPoller) Check(ctx context.Context, mode string) error {
	targets, err := hp.targets.Targets(ctx)
	if err != nil {
		return err
	}

	if mode == health.ModeIncremental {
		hp.monitor.CheckIncremental(ctx, targets)
	} else {
		hp.monitor.CheckBatch(ctx, targets)
	}
	return nil
}

func (hp *HealthPoller) run(ctx context.Context, mode string) {
	if err := hp.Check(ctx, mode); err != nil {
		hp.logger.Error("health cycle failed",
			logger.String("mode", mode),
			logger.Error(err))
		return
	}
	hp.logger.Debug("health cycle done", logger.String("mode", mode))
}
