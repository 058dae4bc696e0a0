package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewFetchMetrics(t *testing.T) {
	t.Parallel()

	t.Run("returns nil when provider is nil", func(t *testing.T) {
		t.Parallel()

		metrics, err := NewFetchMetrics(nil)
		require.NoError(t, err)
		assert.Nil(t, metrics)
	})

	t.Run("creates metrics with SDK provider", func(t *testing.T) {
		t.Parallel()

		mp := sdkmetric.NewMeterProvider()
		defer func() { _ = mp.Shutdown(context.Background()) }()

		metrics, err := NewFetchMetrics(mp)
		require.NoError(t, err)
		require.NotNil(t, metrics)
		assert.NotNil(t, metrics.requests)
		assert.NotNil(t, metrics.duration)
	})
}

func TestFetchMetrics_RecordFetch(t *testing.T) {
	t.Parallel()

	t.Run("no-op when metrics is nil", func(t *testing.T) {
		t.Parallel()

		var metrics *FetchMetrics
		assert.NotPanics(t, func() {
			metrics.RecordFetch(context.Background(), "/api/catalog/artifacts/", OutcomeSuccess, time.Second)
		})
	})

	t.Run("counts requests by outcome", func(t *testing.T) {
		t.Parallel()

		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer func() { _ = mp.Shutdown(context.Background()) }()

		metrics, err := NewFetchMetrics(mp)
		require.NoError(t, err)

		ctx := context.Background()
		metrics.RecordFetch(ctx, "artifacts", OutcomeSuccess, 100*time.Millisecond)
		metrics.RecordFetch(ctx, "artifacts", OutcomeSuccess, 200*time.Millisecond)
		metrics.RecordFetch(ctx, "artifacts", OutcomeStale, 50*time.Millisecond)
		metrics.RecordFetch(ctx, "artifacts", OutcomeFailure, 10*time.Millisecond)

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(ctx, &rm))

		counts := map[string]int64{}
		var histogramCount uint64
		for _, scope := range rm.ScopeMetrics {
			if scope.Scope.Name != FetchMetricsMeterName {
				continue
			}
			for _, m := range scope.Metrics {
				switch data := m.Data.(type) {
				case metricdata.Sum[int64]:
					assert.Equal(t, "catalog_browser_fetch_requests_total", m.Name)
					for _, dp := range data.DataPoints {
						outcome, ok := dp.Attributes.Value(attribute.Key("outcome"))
						require.True(t, ok)
						counts[outcome.AsString()] += dp.Value
					}
				case metricdata.Histogram[float64]:
					assert.Equal(t, "catalog_browser_fetch_duration_seconds", m.Name)
					for _, dp := range data.DataPoints {
						histogramCount += dp.Count
					}
				}
			}
		}

		assert.Equal(t, map[string]int64{"success": 2, "stale": 1, "failure": 1}, counts)
		assert.Equal(t, uint64(4), histogramCount)
	})
}
