package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotebook/internal/app/cycle"
	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
	"github.com/jsamuelsen/quotebook/internal/platform/telemetry"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

const tracerName = "github.com/jsamuelsen/quotebook/app"

const (
	msgSynced     = "Quotes synced with server!"
	msgUpToDate   = "Local quotes are already up to date."
	msgSyncFailed = "Failed to sync with server. Local quotes were left unchanged."
)

// SyncResult summarizes one reconciliation cycle.
type SyncResult struct {
	// CycleID identifies the cycle in logs.
	CycleID string `json:"cycle_id"`

	// Pushed lists the local-only quotes sent to the mirror, in push order.
	Pushed []domain.Quote `json:"pushed"`

	// Remote is the number of quotes in the refetched remote list.
	Remote int `json:"remote"`

	// Merged is the size of the merged list.
	Merged int `json:"merged"`

	// Changed reports whether the local store was replaced.
	Changed bool `json:"changed"`
}

// ReconcilerConfig holds the dependencies of a Reconciler.
type ReconcilerConfig struct {
	Book     *Quotebook
	Mirror   ports.QuoteMirror
	Notifier ports.Notifier
	Metrics  *telemetry.SyncMetrics
	Logger   *slog.Logger
}

// Reconciler brings the quotebook into agreement with the remote mirror.
// At most one cycle runs at a time.
type Reconciler struct {
	book     *Quotebook
	mirror   ports.QuoteMirror
	notifier ports.Notifier
	metrics  *telemetry.SyncMetrics
	exec     *Executor
	logger   *slog.Logger
	tracer   trace.Tracer

	running sync.Mutex
}

// NewReconciler creates a reconciler.
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(slog.String("component", "app.Reconciler"))

	return &Reconciler{
		book:     cfg.Book,
		mirror:   cfg.Mirror,
		notifier: cfg.Notifier,
		metrics:  cfg.Metrics,
		exec:     NewExecutor(logger),
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
	}
}

// syncState carries data between the transactional steps of a cycle.
type syncState struct {
	pushed  []domain.Quote
	remote  []domain.Quote
	merged  []domain.Quote
	changed bool
}

// pushAction sends one local-only quote to the mirror.
type pushAction struct {
	mirror ports.QuoteMirror
	quote  domain.Quote
}

func (a *pushAction) Execute(ctx context.Context) error {
	return a.mirror.Push(ctx, a.quote)
}

func (a *pushAction) Description() string {
	return fmt.Sprintf("push %q [%s]", a.quote.Text, a.quote.Category)
}

// Sync runs one reconciliation cycle:
//  1. fetch the remote list
//  2. find local quotes absent from it
//  3. push each one, awaiting each push before the next
//  4. refetch the remote list
//  5. merge, sort and replace the local store if the result differs
//
// Any fetch or push failure aborts the cycle with the store untouched.
// A call that overlaps a running cycle returns a conflict error at once.
func (r *Reconciler) Sync(ctx context.Context) (*SyncResult, error) {
	if !r.running.TryLock() {
		r.metrics.Record(ctx, telemetry.SyncSkipped, 0, 0)
		return nil, domain.NewConflictError("sync", "a reconciliation is already in progress")
	}
	defer r.running.Unlock()

	c := cycle.New()
	ctx = logging.WithCycleID(logging.WithContext(ctx, logging.FromContextOr(ctx, r.logger)), c.ID())

	ctx, span := r.tracer.Start(ctx, "quotebook.sync",
		trace.WithAttributes(attribute.String("quotebook.cycle_id", c.ID())),
	)
	defer span.End()

	start := time.Now()

	result, err := Execute(ctx, r.exec, r.operation(), c)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sync failed")
		r.metrics.Record(ctx, telemetry.SyncFailed, c.Executed(), time.Since(start))
		r.notify(ctx, ports.MessageError, msgSyncFailed)

		return nil, err
	}

	outcome := telemetry.SyncUnchanged
	if result.Changed {
		outcome = telemetry.SyncChanged
		r.notify(ctx, ports.MessageSuccess, msgSynced)
	} else {
		r.notify(ctx, ports.MessageInfo, msgUpToDate)
	}

	span.SetAttributes(
		attribute.Int("quotebook.sync.pushed", len(result.Pushed)),
		attribute.Bool("quotebook.sync.changed", result.Changed),
	)
	r.metrics.Record(ctx, outcome, len(result.Pushed), time.Since(start))

	return result, nil
}

func (r *Reconciler) operation() Operation[*cycle.Cycle, *syncState, *syncState, *SyncResult] {
	return Operation[*cycle.Cycle, *syncState, *syncState, *SyncResult]{
		Name: "quotebook.sync",

		Validate: func(_ context.Context, c *cycle.Cycle) error {
			if r.mirror == nil || r.book == nil {
				return domain.NewValidationError("reconciler", "mirror and quotebook are required")
			}

			return nil
		},

		Perform: func(ctx context.Context, c *cycle.Cycle) (*syncState, error) {
			remote, err := cycle.Fetch(ctx, c, cycle.PhaseInitial, r.mirror.List)
			if err != nil {
				return nil, fmt.Errorf("fetching remote quotes: %w", err)
			}

			localOnly := domain.LocalOnly(r.book.Quotes(), remote)
			for _, q := range localOnly {
				if err := c.AddAction(&pushAction{mirror: r.mirror, quote: q}); err != nil {
					return nil, err
				}
			}

			if err := c.Commit(ctx); err != nil {
				return nil, fmt.Errorf("pushing local quotes: %w", err)
			}

			refetched, err := cycle.Fetch(ctx, c, cycle.PhaseAfterPush, r.mirror.List)
			if err != nil {
				return nil, fmt.Errorf("refetching remote quotes: %w", err)
			}

			return &syncState{pushed: localOnly, remote: refetched}, nil
		},

		Verify: func(_ context.Context, c *cycle.Cycle, s *syncState) (*syncState, error) {
			if c.Executed() != c.Staged() {
				return nil, fmt.Errorf("pushed %d of %d local quotes", c.Executed(), c.Staged())
			}

			for _, q := range s.remote {
				if err := q.Validate(); err != nil {
					return nil, fmt.Errorf("remote quote %q: %w", q.Text, err)
				}
			}

			return s, nil
		},

		Archive: func(ctx context.Context, _ *cycle.Cycle, s *syncState) error {
			merged, changed, err := r.book.ApplyRemote(ctx, s.remote)
			if err != nil {
				return err
			}

			s.merged = merged
			s.changed = changed

			return nil
		},

		Respond: func(_ context.Context, c *cycle.Cycle, s *syncState) (*SyncResult, error) {
			pushed := s.pushed
			if pushed == nil {
				pushed = []domain.Quote{}
			}

			return &SyncResult{
				CycleID: c.ID(),
				Pushed:  pushed,
				Remote:  len(s.remote),
				Merged:  len(s.merged),
				Changed: s.changed,
			}, nil
		},
	}
}

func (r *Reconciler) notify(ctx context.Context, kind ports.MessageKind, text string) {
	if r.notifier != nil {
		r.notifier.Notify(ctx, kind, text)
	}
}
