package paging

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	"k8s.io/utils/clock"

	"github.com/stacklok/catalog-browser/internal/telemetry"
)

const (
	// DefaultDebounce is the quiet period before a request is issued
	DefaultDebounce = 500 * time.Millisecond

	// DefaultRequestTimeout bounds a single page request
	DefaultRequestTimeout = 15 * time.Second
)

// Option configures a Fetcher
type Option func(*options)

type options struct {
	clock          clock.WithDelayedExecution
	debounce       time.Duration
	requestTimeout time.Duration
	metrics        *telemetry.FetchMetrics
	tracer         trace.Tracer
	logger         *slog.Logger
}

func defaultOptions() options {
	return options{
		clock:          clock.RealClock{},
		debounce:       DefaultDebounce,
		requestTimeout: DefaultRequestTimeout,
		logger:         slog.Default(),
	}
}

// WithClock sets the clock driving the debounce timer
func WithClock(c clock.WithDelayedExecution) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithDebounce sets the debounce period. Zero issues requests on the next
// timer tick without waiting.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.debounce = d
		}
	}
}

// WithRequestTimeout sets the timeout applied to each request
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.requestTimeout = d
		}
	}
}

// WithMetrics records request outcomes and durations
func WithMetrics(m *telemetry.FetchMetrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTracer wraps each request in a span
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
