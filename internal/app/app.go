package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/portal/internal/auth"
	"github.com/MrSnakeDoc/portal/internal/catalog"
	"github.com/MrSnakeDoc/portal/internal/config"
	"github.com/MrSnakeDoc/portal/internal/health"
	"github.com/MrSnakeDoc/portal/internal/httpserver"
	"github.com/MrSnakeDoc/portal/internal/httpserver/deps"
	"github.com/MrSnakeDoc/portal/internal/logger"
	"github.com/MrSnakeDoc/portal/internal/metrics"
	"github.com/MrSnakeDoc/portal/internal/portal"
	"github.com/MrSnakeDoc/portal/internal/probe"
	"github.com/MrSnakeDoc/portal/internal/redis"
	"github.com/MrSnakeDoc/portal/internal/scheduler"
	"github.com/MrSnakeDoc/portal/internal/store"
	filestore "github.com/MrSnakeDoc/portal/internal/store/file"
	redisstore "github.com/MrSnakeDoc/portal/internal/store/redis"
	"github.com/MrSnakeDoc/portal/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	poller      *scheduler.HealthPoller
	reloader    *scheduler.CatalogReloader
	janitor     *scheduler.StoreJanitor
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog, logger.FileOptions{
		Path:     cfg.LogFile,
		Compress: true,
	})

	m := metrics.New(version.Version)

	// Storage backend - fail fast if unavailable
	backend, redisClient, err := openBackend(cfg, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to open %s store: %v", cfg.StoreBackend, err)
		os.Exit(1)
	}
	st := store.New(backend, loggerClient, m)
	loggerClient.Info("store initialized",
		logger.String("backend", backend.Name()))

	// Catalog
	file, err := catalog.NewLoader(cfg.CatalogFile).Load()
	if err != nil {
		loggerClient.Errorf("Failed to load catalog: %v", err)
		os.Exit(1)
	}
	cat, err := catalog.Build(file)
	if err != nil {
		loggerClient.Errorf("Invalid catalog: %v", err)
		os.Exit(1)
	}
	holder := catalog.NewHolder(cat)
	loggerClient.Info("catalog loaded",
		logger.Int("services", cat.Count()),
		logger.String("file", cfg.CatalogFile))

	svc := portal.New(st, holder, loggerClient)
	if err := svc.Bootstrap(context.Background(), cfg.AdminPassword); err != nil {
		loggerClient.Errorf("Failed to seed admin credential: %v", err)
		os.Exit(1)
	}

	sessions, err := auth.NewSessions(cfg.SessionKey, cfg.SessionTTL)
	if err != nil {
		loggerClient.Errorf("Failed to initialize sessions: %v", err)
		os.Exit(1)
	}
	if len(cfg.SessionKey) == 0 {
		loggerClient.Warn("PORTAL_SESSION_KEY not set, sessions will not survive a restart")
	}

	prober := probe.New(probe.Options{
		Host:        cfg.ProbeHost,
		BaseURL:     cfg.ProbeBaseURL,
		Timeout:     cfg.ProbeTimeout,
		Concurrency: cfg.ProbeConcurrency,
	}, m)
	monitor := health.NewMonitor(prober, m)

	poller := scheduler.NewHealthPoller(svc, monitor, loggerClient, cfg.HealthInterval)
	svc.OnCustomChanged(poller.TriggerIncremental)

	reloader := scheduler.NewCatalogReloader(
		cfg.CatalogFile,
		holder,
		loggerClient,
		cfg.CatalogReloadInterval,
	)

	janitor := scheduler.NewStoreJanitor(svc, loggerClient, cfg.JanitorInterval)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:               loggerClient,
		StartTime:            time.Now(),
		Version:              version.Version,
		Commit:               version.Commit,
		BuildDate:            version.BuildDate,
		GoVersion:            version.GoVersion,
		TimeNow:              time.Now,
		AllowedHosts:         cfg.AllowedHosts,
		AllowedCIDRS:         cfg.AllowedCIDRS,
		TrustProxy:           cfg.TrustProxy,
		CORSOrigins:          cfg.CORSOrigins,
		RequireSession:       cfg.RequireSession,
		AuthRateBurst:        cfg.AuthRateBurst,
		AuthRatePerMin:       cfg.AuthRatePerMin,
		Portal:               svc,
		Store:                st,
		Monitor:              monitor,
		Prober:               prober,
		Sessions:             sessions,
		Metrics:              m,
		RecheckTrigger:       poller.TriggerRecheck,
		CatalogReloadTrigger: reloader.Trigger,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		poller:      poller,
		reloader:    reloader,
		janitor:     janitor,
	}
}

// openBackend returns the configured document backend. The redis backend is
// seeded from the data directory for documents it does not hold yet.
func openBackend(cfg *config.Config, log logger.Logger) (store.Backend, *goredis.Client, error) {
	files, err := filestore.New(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	if cfg.StoreBackend != config.BackendRedis {
		return files, nil, nil
	}

	client, err := redis.Connect(context.Background(), redis.Options{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		DB:             cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		QuietAttempts:  cfg.RedisWarnThreshold,
	}, log)
	if err != nil {
		return nil, nil, err
	}

	backend := redisstore.NewBackend(client)
	syncer := scheduler.NewDocumentSyncer(files, backend, log)
	if err := syncer.Sync(context.Background()); err != nil {
		log.Warn("failed to seed redis from data dir, starting from stored documents",
			logger.Error(err))
	}
	return backend, client, nil
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Portal v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Portal %s", version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.poller.Start(ctx); err != nil {
		return fmt.Errorf("failed to start health poller: %w", err)
	}
	a.logger.Info("health poller started",
		logger.Duration("interval", a.cfg.HealthInterval))

	if err := a.reloader.Start(ctx); err != nil {
		return fmt.Errorf("failed to start catalog reloader: %w", err)
	}
	a.logger.Info("catalog reloader started",
		logger.Duration("interval", a.cfg.CatalogReloadInterval))

	if err := a.janitor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start store janitor: %w", err)
	}
	a.logger.Info("store janitor started",
		logger.Duration("interval", a.cfg.JanitorInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.poller.Stop()
	a.reloader.Stop()
	a.janitor.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ Portal stopped cleanly")
	_ = a.logger.Sync()
	return nil
}
