// Package bootstrap assembles the quotebook object graph from configuration.
// Both the HTTP service and the CLI build on it so they share one store and
// mirror setup.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jsamuelsen/quotebook/internal/adapters/clients"
	"github.com/jsamuelsen/quotebook/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quotebook/internal/adapters/storage/memory"
	"github.com/jsamuelsen/quotebook/internal/adapters/storage/sqlite"
	"github.com/jsamuelsen/quotebook/internal/app"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
	"github.com/jsamuelsen/quotebook/internal/platform/telemetry"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

// Store drivers accepted in store.driver.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Components is the wired application.
type Components struct {
	Config     *config.Config
	Logger     *slog.Logger
	Store      ports.KeyValueStore
	Session    *memory.Store
	Mirror     *acl.MirrorClient
	Messages   *app.MessageBox
	Book       *app.Quotebook
	Reconciler *app.Reconciler
	Health     *ports.DefaultHealthRegistry

	closers []func() error
}

// LoadConfig loads and validates configuration for profile.
func LoadConfig(profile string) (*config.Config, error) {
	cfg, err := config.Load(profile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// NewLogger builds the root logger described by cfg.Log, writing to stdout.
func NewLogger(cfg *config.Config) *slog.Logger {
	return NewLoggerWithWriter(cfg, os.Stdout)
}

// NewLoggerWithWriter builds the root logger with a custom terminal writer.
func NewLoggerWithWriter(cfg *config.Config, w io.Writer) *slog.Logger {
	return logging.NewWithWriter(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	}, w)
}

// Build opens the stores, creates the mirror adapter and loads the quotebook.
// Callers must Close the result.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Components, error) {
	c := &Components{
		Config: cfg,
		Logger: logger,
		Health: ports.NewHealthRegistry(),
	}

	store, err := c.openStore(ctx)
	if err != nil {
		return nil, err
	}
	c.Store = store

	c.Session = memory.New()

	httpClient, err := clients.New(&clients.Config{
		BaseURL:     cfg.Services.Mirror.BaseURL,
		ServiceName: cfg.Services.Mirror.Name,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Transport:   cfg.Client.Transport,
		Logger:      logger,
	})
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("creating HTTP client: %w", err)
	}

	c.Mirror = acl.NewMirrorClient(acl.MirrorClientConfig{
		Client:   httpClient,
		Path:     cfg.Services.Mirror.Path,
		MaxItems: cfg.Services.Mirror.MaxItems,
		Category: cfg.Services.Mirror.Category,
		UserID:   cfg.Services.Mirror.UserID,
		Logger:   logger,
	})

	if err := c.registerHealth(store); err != nil {
		_ = c.Close()
		return nil, err
	}

	c.Messages = app.NewMessageBox(cfg.Messages.TTL, logger)

	c.Book = app.NewQuotebook(app.QuotebookConfig{
		Store:        store,
		Session:      c.Session,
		Notifier:     c.Messages,
		Logger:       logger,
		SeedDefaults: cfg.Store.SeedDefaults,
	})
	c.Book.Load(ctx)

	metrics, err := telemetry.NewSyncMetrics()
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("creating sync metrics: %w", err)
	}

	c.Reconciler = app.NewReconciler(app.ReconcilerConfig{
		Book:     c.Book,
		Mirror:   c.Mirror,
		Notifier: c.Messages,
		Metrics:  metrics,
		Logger:   logger,
	})

	return c, nil
}

func (c *Components) openStore(ctx context.Context) (ports.KeyValueStore, error) {
	switch c.Config.Store.Driver {
	case DriverMemory:
		return memory.New(), nil

	case DriverSQLite:
		store, err := sqlite.Open(ctx, c.Config.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("opening quote store: %w", err)
		}

		c.closers = append(c.closers, store.Close)

		return store, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", c.Config.Store.Driver)
	}
}

func (c *Components) registerHealth(store ports.KeyValueStore) error {
	checkers := []ports.HealthChecker{c.Mirror}
	if hc, ok := store.(ports.HealthChecker); ok {
		checkers = append(checkers, hc)
	}

	for _, hc := range checkers {
		if err := c.Health.Register(hc); err != nil {
			return fmt.Errorf("registering %s health check: %w", hc.Name(), err)
		}
	}

	return nil
}

// Scheduler returns the periodic reconciliation loop configured by cfg.Sync.
func (c *Components) Scheduler() *app.SyncScheduler {
	return app.NewSyncScheduler(app.SyncSchedulerConfig{
		Syncer:     c.Reconciler,
		Interval:   c.Config.Sync.Interval,
		RunOnStart: c.Config.Sync.RunOnStart,
		Logger:     c.Logger,
	})
}

// Close releases the stores.
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}

	return errors.Join(errs...)
}
