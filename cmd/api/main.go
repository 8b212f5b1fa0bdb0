package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mergington/activities-api/internal/adapters/httpapi"
	kafkaevents "github.com/mergington/activities-api/internal/adapters/kafka/events"
	memidempotency "github.com/mergington/activities-api/internal/adapters/memory/idempotency"
	memrosterrepo "github.com/mergington/activities-api/internal/adapters/memory/rosterrepo"
	postgres "github.com/mergington/activities-api/internal/adapters/postgres"
	pgidempotency "github.com/mergington/activities-api/internal/adapters/postgres/idempotency"
	"github.com/mergington/activities-api/internal/adapters/postgres/migrations"
	pgrosterrepo "github.com/mergington/activities-api/internal/adapters/postgres/rosterrepo"
	"github.com/mergington/activities-api/internal/adapters/sqlite"
	sqliterosterrepo "github.com/mergington/activities-api/internal/adapters/sqlite/rosterrepo"
	"github.com/mergington/activities-api/internal/app/catalog"
	"github.com/mergington/activities-api/internal/app/enrollment"
	"github.com/mergington/activities-api/internal/domain"
	"github.com/mergington/activities-api/internal/observability"
	"github.com/mergington/activities-api/internal/platform/catalogfile"
	platformclock "github.com/mergington/activities-api/internal/platform/clock"
	"github.com/mergington/activities-api/internal/platform/config"
	"github.com/mergington/activities-api/internal/platform/logging"
	"github.com/mergington/activities-api/internal/ports/out/events"
	idempotencyport "github.com/mergington/activities-api/internal/ports/out/idempotency"
	rosterrepoport "github.com/mergington/activities-api/internal/ports/out/rosterrepo"
)

func main() {
	cfg, err := config.Load(nil)
	if err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(logger)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("api exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	clk := platformclock.NewSystemClock()

	var (
		roster    rosterrepoport.Repository
		idemStore idempotencyport.Store
		cleanups  []func()
	)
	defer func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}()

	switch cfg.StorageBackend {
	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			return fmt.Errorf("invalid postgres config: %w", err)
		}
		cleanups = append(cleanups, pool.Close)
		if err := migrations.Apply(ctx, pool); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		roster = pgrosterrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool, cfg.IdempotencyTTL)
	case config.BackendSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		cleanups = append(cleanups, closeDB(logger, db))
		roster = sqliterosterrepo.NewRepo(db)
		idemStore = memidempotency.NewStore(memidempotency.WithTTL(cfg.IdempotencyTTL), memidempotency.WithNow(clk.Now))
	default:
		roster = memrosterrepo.NewRepo()
		idemStore = memidempotency.NewStore(memidempotency.WithTTL(cfg.IdempotencyTTL), memidempotency.WithNow(clk.Now))
	}

	seed, err := loadCatalog(cfg.CatalogFile)
	if err != nil {
		return err
	}
	catalogSvc := catalog.NewService(roster)
	res, err := catalogSvc.Provision(ctx, seed)
	if err != nil {
		return err
	}
	logger.Info("activities provisioned", "backend", cfg.StorageBackend, "created", res.Created, "kept", res.Kept)

	publisher, closePublisher, err := newEventPublisher(cfg)
	if err != nil {
		return err
	}
	if publisher != nil {
		cleanups = append(cleanups, func() {
			if err := closePublisher(); err != nil {
				logger.Warn("close event publisher", "error", err)
			}
		})
		logger.Info("publishing enrollment events", "topic", cfg.KafkaEnrollmentTopic)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	enrollmentSvc := enrollment.NewService(roster,
		enrollment.WithPublisher(publisher),
		enrollment.WithRecorder(metrics),
		enrollment.WithClock(clk),
	)
	// Runs before the publisher is closed: cleanups unwind in reverse.
	cleanups = append(cleanups, func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := enrollmentSvc.Close(drainCtx); err != nil {
			logger.Warn("enrollment events not drained", "error", err)
		}
	})

	api := httpapi.NewServer(catalogSvc, enrollmentSvc, idemStore)
	api.Clock = clk

	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{
		Logger:         logger,
		Metrics:        metrics,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		CORSOrigins:    cfg.CORSOrigins,
		StaticDir:      cfg.StaticDir,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newEventPublisher returns the Kafka publisher when brokers are configured.
// Without brokers it returns a nil publisher and events are not produced.
func newEventPublisher(cfg config.Config) (events.Publisher, func() error, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return nil, func() error { return nil }, nil
	}
	p, err := kafkaevents.NewPublisher(cfg.KafkaBrokers, cfg.KafkaEnrollmentTopic)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka publisher: %w", err)
	}
	return p, p.Close, nil
}

func loadCatalog(path string) ([]domain.Activity, error) {
	if path == "" {
		return catalogfile.Default(), nil
	}
	activities, err := catalogfile.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load activity catalog: %w", err)
	}
	return activities, nil
}

func closeDB(logger *slog.Logger, db *sql.DB) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.Warn("close sqlite", "error", err)
		}
	}
}
