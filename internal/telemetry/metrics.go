package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// FetchMetricsMeterName is the name used for the fetch metrics meter
const FetchMetricsMeterName = InstrumentationName + "/paging"

// Outcome classifies how a catalog fetch ended
type Outcome string

const (
	// OutcomeSuccess is a response that was applied to the view state
	OutcomeSuccess Outcome = "success"
	// OutcomeFailure is a transport error or non-2xx response
	OutcomeFailure Outcome = "failure"
	// OutcomeStale is a response superseded by a newer request and discarded
	OutcomeStale Outcome = "stale"
)

// FetchMetrics holds the instruments for paged catalog fetches.
// A nil *FetchMetrics is valid and records nothing.
type FetchMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewFetchMetrics creates the fetch instruments. A nil provider returns nil.
func NewFetchMetrics(provider metric.MeterProvider) (*FetchMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(FetchMetricsMeterName)

	requests, err := meter.Int64Counter(
		"catalog_browser_fetch_requests_total",
		metric.WithDescription("Catalog page requests by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"catalog_browser_fetch_duration_seconds",
		metric.WithDescription("Duration of catalog page requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15),
	)
	if err != nil {
		return nil, err
	}

	return &FetchMetrics{requests: requests, duration: duration}, nil
}

// RecordFetch records one finished request against endpoint
func (m *FetchMetrics) RecordFetch(ctx context.Context, endpoint string, outcome Outcome, elapsed time.Duration) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("outcome", string(outcome)),
	)
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}
