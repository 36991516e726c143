package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/heartmarshall/modix-backend/internal/adapter/postgres"
	"github.com/heartmarshall/modix-backend/internal/adapter/postgres/claim"
	"github.com/heartmarshall/modix-backend/internal/adapter/postgres/designated"
	"github.com/heartmarshall/modix-backend/internal/adapter/postgres/infraction"
	"github.com/heartmarshall/modix-backend/internal/adapter/postgres/promotion"
	"github.com/heartmarshall/modix-backend/internal/adapter/postgres/stats"
	"github.com/heartmarshall/modix-backend/internal/adapter/postgres/tag"
	"github.com/heartmarshall/modix-backend/internal/config"
	"github.com/heartmarshall/modix-backend/internal/domain"
	"github.com/heartmarshall/modix-backend/internal/metrics"
	"github.com/heartmarshall/modix-backend/internal/notify"
	"github.com/heartmarshall/modix-backend/internal/transport/middleware"
	"github.com/heartmarshall/modix-backend/internal/transport/rest"
)

// Repositories is the full set of ledger-backed repositories.
type Repositories struct {
	Infractions *infraction.Repo
	Claims      *claim.Repo
	Channels    *designated.Repo[domain.DesignatedChannelType]
	Roles       *designated.Repo[domain.DesignatedRoleType]
	Tags        *tag.Repo
	Promotions  *promotion.Repo
	Stats       *stats.Repo
}

// NewRepositories constructs every repository from shared deps.
func NewRepositories(pool *pgxpool.Pool, deps postgres.Deps) Repositories {
	return Repositories{
		Infractions: infraction.New(deps),
		Claims:      claim.New(deps),
		Channels:    designated.NewChannels(deps),
		Roles:       designated.NewRoles(deps),
		Tags:        tag.New(deps),
		Promotions:  promotion.New(deps),
		Stats:       stats.New(pool),
	}
}

// Run is the application entry point. It loads configuration, connects to
// the database, wires the repositories and the notification relay, and
// serves metrics until ctx is cancelled.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	ledgerMetrics, err := metrics.NewLedger(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	dispatcher := notify.NewDispatcher(logger, cfg.Ledger.NotifyBuffer)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Ledger.ShutdownTimeout)
		defer cancel()
		if err := dispatcher.Close(shutdownCtx); err != nil {
			logger.Warn("notification queue not drained", slog.String("error", err.Error()))
		}
	}()

	deps := postgres.Deps{
		DB:          pool,
		Publisher:   dispatcher,
		Metrics:     ledgerMetrics,
		Log:         logger,
		MaxPageSize: cfg.Ledger.MaxPageSize,
	}.WithDefaults()

	repos := NewRepositories(pool, deps)
	dispatcher.Subscribe(notify.NewLogRelay(repos.Channels, logger).Handle)

	logger.Info("repositories ready", slog.Int("max_page_size", deps.MaxPageSize))

	if !cfg.Metrics.Enabled {
		<-ctx.Done()
		logger.Info("shutting down")
		return nil
	}

	health := rest.NewHealthHandler(BuildVersion(), 3*time.Second, map[string]rest.Pinger{
		"database": pool,
		"notify":   dispatcher,
	})
	return serveOps(ctx, logger, cfg.Metrics, cfg.Ledger.ShutdownTimeout, reg, health)
}

// serveOps serves the scrape endpoint and the health checks until ctx ends.
func serveOps(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.MetricsConfig,
	timeout time.Duration,
	reg *prometheus.Registry,
	health *rest.HealthHandler,
) error {
	instrument, err := middleware.Instrument(reg, "ops")
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("GET "+cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	health.Register(mux)

	handler := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		instrument,
	)(mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ops server listening", slog.String("addr", cfg.Addr), slog.String("path", cfg.Path))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown ops server: %w", err)
	}
	return nil
}
