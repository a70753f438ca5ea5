package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/velorank/internal/adapters/http/api"
	"github.com/okian/velorank/internal/adapters/http/swagger"
	"github.com/okian/velorank/internal/adapters/repository"
	app "github.com/okian/velorank/internal/app"
	"github.com/okian/velorank/internal/config"
	"github.com/okian/velorank/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 60 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.InitWithFormat(logger.Format(cfg.LogFormat), os.Stdout); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "service failed", logger.Error(err))
		os.Exit(1)
	}
}

// run owns the process lifetime once configuration and logging are ready.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	log.Info(ctx, "store opened", logger.String("driver", cfg.DBDriver))

	svc := newService(cfg, store, log)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("start service: %w", err)
	}

	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(ctx, cfg, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for shutdown signal or a listener failure
	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(ctx, "service shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return runErr
}

// openStore opens the configured backend. SQL stores are wrapped in a circuit breaker.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.DBDriver {
	case "memory":
		return repository.NewMemoryStore(), nil
	case string(repository.DriverSQLite), string(repository.DriverPostgres):
		sqlStore, err := repository.OpenSQL(ctx, repository.Driver(cfg.DBDriver), cfg.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", cfg.DBDriver, err)
		}
		return repository.NewBreakerStore(sqlStore,
			repository.WithMaxFailures(cfg.BreakerMaxFailures),
			repository.WithOpenTimeout(time.Duration(cfg.BreakerOpenSeconds)*time.Second),
		), nil
	default:
		return nil, fmt.Errorf("%w: %s", repository.ErrUnknownDriver, cfg.DBDriver)
	}
}

func newService(cfg *config.Config, store repository.Store, log logger.Logger) *app.Service {
	return app.New(
		app.WithStore(store),
		app.WithLogger(log.Named("service")),
		app.WithKBase(cfg.KBase),
		app.WithHeadToHeadMaxField(cfg.HeadToHeadMaxField),
		app.WithRaceImportance(cfg.RaceImportance),
		app.WithSourceReliability(cfg.SourceReliability, cfg.DefaultSourceReliability),
		app.WithWriteConcurrency(cfg.WriteConcurrency),
		app.WithImportQueueSize(cfg.ImportQueueSize),
		app.WithImportWorkers(cfg.ImportWorkers),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithMaxRankingsLimit(cfg.MaxRankingsLimit),
		app.WithResyncSchedule(cfg.RankingsResyncSchedule),
	)
}

// newRouter builds the HTTP handler with the business API and the docs routes.
func newRouter(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)

	apiServer := api.NewServer(svc, svc,
		api.WithLogger(log.Named("api")),
		api.WithCORSOrigins(cfg.Origins()),
		api.WithAnalysisRateLimit(cfg.AnalysisRateLimit, cfg.AnalysisBurst),
	)
	apiServer.Register(ctx, r)
	swagger.Register(ctx, r)
	return r
}

// startServiceMetricsUpdater refreshes gauges derived from service stats.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats refreshes the queue gauges as a side effect.
			_ = svc.GetStats()
		}
	}
}
