package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jsamuelsen/quotebook/internal/domain"
)

// DefaultSyncInterval is the period between scheduled reconciliations.
const DefaultSyncInterval = 10 * time.Second

// Syncer runs one reconciliation cycle.
type Syncer interface {
	Sync(ctx context.Context) (*SyncResult, error)
}

// SyncSchedulerConfig configures a SyncScheduler.
type SyncSchedulerConfig struct {
	Syncer     Syncer
	Interval   time.Duration
	RunOnStart bool
	Logger     *slog.Logger
}

// SyncScheduler triggers reconciliation on a fixed interval until its
// context is cancelled.
type SyncScheduler struct {
	syncer     Syncer
	interval   time.Duration
	runOnStart bool
	logger     *slog.Logger
}

// NewSyncScheduler creates a scheduler. A non-positive interval uses DefaultSyncInterval.
func NewSyncScheduler(cfg SyncSchedulerConfig) *SyncScheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultSyncInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SyncScheduler{
		syncer:     cfg.Syncer,
		interval:   interval,
		runOnStart: cfg.RunOnStart,
		logger:     logger.With(slog.String("component", "app.SyncScheduler")),
	}
}

// Run blocks until ctx is cancelled. Cycle failures are logged and never
// stop the schedule. Ticks that fire while a cycle is still running are dropped.
func (s *SyncScheduler) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "sync scheduler started",
		slog.Duration("interval", s.interval),
		slog.Bool("run_on_start", s.runOnStart),
	)

	if s.runOnStart {
		s.tick(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(context.WithoutCancel(ctx), "sync scheduler stopped")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *SyncScheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	result, err := s.syncer.Sync(ctx)
	switch {
	case domain.IsConflict(err):
		s.logger.DebugContext(ctx, "skipping tick, sync already running")
	case err != nil:
		s.logger.WarnContext(ctx, "scheduled sync failed", slog.Any("error", err))
	default:
		s.logger.InfoContext(ctx, "scheduled sync completed",
			slog.Int("pushed", len(result.Pushed)),
			slog.Int("merged", result.Merged),
			slog.Bool("changed", result.Changed),
		)
	}
}
