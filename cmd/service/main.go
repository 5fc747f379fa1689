// Command service runs the quotebook HTTP API and its periodic mirror sync.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/jsamuelsen/quotebook/internal/adapters/http"
	"github.com/jsamuelsen/quotebook/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotebook/internal/bootstrap"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
	"github.com/jsamuelsen/quotebook/internal/platform/telemetry"
)

// Set with -ldflags "-X main.Version=... -X main.Commit=... -X main.BuildTime=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	cfg, err := bootstrap.LoadConfig(profile)
	if err != nil {
		return err
	}

	logger := bootstrap.NewLogger(cfg)
	logging.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.String("store", cfg.Store.Driver),
	)

	shutdownTelemetry, err := startTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdownTelemetry(logger)

	components, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := components.Close(); err != nil {
			logger.Error("closing stores", slog.Any("error", err))
		}
	}()

	server, err := newServer(cfg, logger, components)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx) })

	if cfg.Sync.Enabled {
		scheduler := components.Scheduler()
		g.Go(func() error { return scheduler.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("shutdown complete")

	return nil
}

// startTelemetry installs the OTLP providers when enabled. The returned
// func flushes them within ShutdownTimeout.
func startTelemetry(ctx context.Context, cfg *config.Config) (func(*slog.Logger), error) {
	provider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	return func(logger *slog.Logger) {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := provider.Shutdown(flushCtx); err != nil {
			logger.Error("telemetry shutdown", slog.Any("error", err))
		}
	}, nil
}

func newServer(cfg *config.Config, logger *slog.Logger, c *bootstrap.Components) (*http.Server, error) {
	if err := prometheus.Register(handlers.NewQuoteGauge(c.Book)); err != nil {
		return nil, fmt.Errorf("registering quote gauge: %w", err)
	}

	health := handlers.NewHealthHandler(c.Health, handlers.NewBuildInfo(Version, Commit, BuildTime))

	routes := http.NewDefaultRouterConfig(logger, &cfg.App, &cfg.Auth, health)
	routes.QuoteHandler = handlers.NewQuoteHandler(c.Book)
	routes.SyncHandler = handlers.NewSyncHandler(c.Reconciler, c.Messages)

	server := http.New(&cfg.Server, logger)
	http.SetupRouter(server.Engine(), routes)

	return server, nil
}
