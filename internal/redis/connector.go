// Package redis opens the Redis connection that backs the document store.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/portal/internal/logger"
)

// Options configures the client and the startup retry policy.
type Options struct {
	Addr         string
	User         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int

	// ConnectTimeout bounds all attempts together.
	ConnectTimeout time.Duration
	// RetryInterval is the first wait; it doubles up to MaxWait.
	RetryInterval time.Duration
	MaxWait       time.Duration
	PingTimeout   time.Duration
	// Attempts beyond QuietAttempts are logged at error level.
	QuietAttempts int
}

func (o Options) validate() error {
	var errs []error
	positive := map[string]time.Duration{
		"ConnectTimeout": o.ConnectTimeout,
		"RetryInterval":  o.RetryInterval,
		"MaxWait":        o.MaxWait,
		"PingTimeout":    o.PingTimeout,
	}
	for name, d := range positive {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %v", name, d))
		}
	}
	if o.QuietAttempts < 0 {
		errs = append(errs, fmt.Errorf("QuietAttempts must be >= 0, got %d", o.QuietAttempts))
	}
	return errors.Join(errs...)
}

// backoff doubles the wait after every failed attempt, capped at max.
type backoff struct {
	wait, max time.Duration
}

func (b *backoff) next() time.Duration {
	d := b.wait
	b.wait = min(b.wait*2, b.max)
	return d
}

// Connect creates a client for the document backend and pings it until it
// answers, ConnectTimeout elapses or ctx is cancelled. The client is closed
// on failure.
func Connect(ctx context.Context, opts Options, log logger.Logger) (*redis.Client, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid redis options: %w", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.User,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
	})

	if err := waitReady(ctx, client, opts, log); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func waitReady(ctx context.Context, client *redis.Client, opts Options, log logger.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	base := []logger.Field{
		logger.String("backend", "redis"),
		logger.String("addr", opts.Addr),
		logger.Int("db", opts.DB),
	}
	with := func(fields ...logger.Field) []logger.Field {
		return append(append([]logger.Field{}, base...), fields...)
	}

	log.Info("waiting for document backend", with(logger.Duration("timeout", opts.ConnectTimeout))...)
	start := time.Now()
	b := backoff{wait: opts.RetryInterval, max: opts.MaxWait}

	for attempt := 1; ; attempt++ {
		pingCtx, pingCancel := context.WithTimeout(ctx, opts.PingTimeout)
		err := client.Ping(pingCtx).Err()
		pingCancel()

		if err == nil {
			if attempt > 1 {
				log.Warn("document backend ready after retries", with(
					logger.Int("attempts", attempt),
					logger.Duration("elapsed", time.Since(start)))...)
			} else {
				log.Info("document backend ready", base...)
			}
			return nil
		}

		wait := b.next()
		fields := with(
			logger.Int("attempt", attempt),
			logger.Duration("next_retry_in", wait),
			logger.Error(err),
		)
		if attempt > opts.QuietAttempts {
			log.Error("document backend still unreachable", fields...)
		} else {
			log.Warn("document backend unreachable, retrying", fields...)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("redis document backend at %s unavailable after %d attempts: %w",
				opts.Addr, attempt, err)
		case <-timer.C:
		}
	}
}
