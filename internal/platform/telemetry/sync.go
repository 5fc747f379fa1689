package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SyncOutcome labels the result of one reconciliation cycle.
type SyncOutcome string

const (
	SyncChanged   SyncOutcome = "changed"
	SyncUnchanged SyncOutcome = "unchanged"
	SyncFailed    SyncOutcome = "failed"
	SyncSkipped   SyncOutcome = "skipped"
)

// SyncMetrics holds reconciliation metrics.
type SyncMetrics struct {
	cycles   metric.Int64Counter
	pushed   metric.Int64Counter
	duration metric.Float64Histogram
}

// NewSyncMetrics creates reconciliation metrics on the global meter provider.
func NewSyncMetrics() (*SyncMetrics, error) {
	meter := otel.Meter(instrumentationName)

	cycles, err := meter.Int64Counter(
		"quotebook.sync.cycles",
		metric.WithDescription("Reconciliation cycles by outcome"),
	)
	if err != nil {
		return nil, err
	}

	pushed, err := meter.Int64Counter(
		"quotebook.sync.pushed",
		metric.WithDescription("Local quotes pushed to the mirror"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"quotebook.sync.duration",
		metric.WithDescription("Reconciliation cycle duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{cycles: cycles, pushed: pushed, duration: duration}, nil
}

// Record adds one cycle. Safe to call on a nil receiver.
func (m *SyncMetrics) Record(ctx context.Context, outcome SyncOutcome, pushed int, elapsed time.Duration) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("outcome", string(outcome)))

	m.cycles.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)

	if pushed > 0 {
		m.pushed.Add(ctx, int64(pushed))
	}
}
