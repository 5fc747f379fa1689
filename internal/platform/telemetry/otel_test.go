package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false, Endpoint: "collector:4317"})
	require.NoError(t, err)

	assert.Nil(t, p.tracerProvider)
	assert.Nil(t, p.meterProvider)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSyncMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	otel.SetMeterProvider(provider)
	t.Cleanup(func() { otel.SetMeterProvider(noop.NewMeterProvider()) })

	m, err := NewSyncMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.Record(ctx, SyncChanged, 2, 40*time.Millisecond)
	m.Record(ctx, SyncFailed, 0, 10*time.Millisecond)
	m.Record(ctx, SyncChanged, 1, 20*time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string]map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, mt := range scope.Metrics {
			data, ok := mt.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range data.DataPoints {
				outcome, _ := dp.Attributes.Value("outcome")
				if sums[mt.Name] == nil {
					sums[mt.Name] = map[string]int64{}
				}
				sums[mt.Name][outcome.AsString()] += dp.Value
			}
		}
	}

	assert.Equal(t, map[string]int64{"changed": 2, "failed": 1}, sums["quotebook.sync.cycles"])
	assert.Equal(t, map[string]int64{"": 3}, sums["quotebook.sync.pushed"])
}

func TestSyncMetrics_NilIsNoop(t *testing.T) {
	var m *SyncMetrics

	assert.NotPanics(t, func() { m.Record(context.Background(), SyncSkipped, 3, time.Second) })
}
