// Package metadata loads the values offered by the shape, culture and tag
// selectors of the filter form.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/catalog-browser/internal/alert"
	"github.com/stacklok/catalog-browser/internal/auth"
	"github.com/stacklok/catalog-browser/internal/catalog"
	"github.com/stacklok/catalog-browser/internal/httpclient"
	"github.com/stacklok/catalog-browser/internal/otel"
)

// DefaultMaxTries bounds the attempts made by Load
const DefaultMaxTries uint = 3

type response struct {
	Data catalog.Metadata `json:"data"`
}

// Loader fetches filter metadata, retrying transient failures
type Loader struct {
	endpoint   string
	client     httpclient.Client
	tokens     auth.TokenSource
	alerts     alert.Alerter
	maxTries   uint
	newBackOff func() backoff.BackOff
	tracer     trace.Tracer
	logger     *slog.Logger
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader)

// WithMaxTries sets the total number of attempts, including the first
func WithMaxTries(n uint) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.maxTries = n
		}
	}
}

// WithBackOff sets the policy that spaces retries
func WithBackOff(newBackOff func() backoff.BackOff) LoaderOption {
	return func(l *Loader) {
		l.newBackOff = newBackOff
	}
}

// WithTracer wraps each load in a span
func WithTracer(t trace.Tracer) LoaderOption {
	return func(l *Loader) {
		l.tracer = t
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a loader for the metadata endpoint
func NewLoader(
	endpoint string,
	client httpclient.Client,
	tokens auth.TokenSource,
	alerts alert.Alerter,
	opts ...LoaderOption,
) *Loader {
	l := &Loader{
		endpoint: endpoint,
		client:   client,
		tokens:   tokens,
		alerts:   alerts,
		maxTries: DefaultMaxTries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.tokens == nil {
		l.tokens = auth.Anonymous
	}
	if l.alerts == nil {
		l.alerts = alert.LogAlerter{Logger: l.logger}
	}
	return l
}

// Load fetches the metadata. Network failures and 5xx responses are retried
// with exponential backoff; other failures end the load at once. A final
// failure is reported to the alerter once and returned.
func (l *Loader) Load(ctx context.Context) (catalog.Metadata, error) {
	ctx, span := otel.StartSpan(ctx, l.tracer, "metadata.Load",
		trace.WithAttributes(otel.AttrEndpoint.String(l.endpoint)))
	defer span.End()

	attempt := 0
	operation := func() (catalog.Metadata, error) {
		attempt++
		resp, err := httpclient.GetJSON[response](ctx, l.client, l.endpoint,
			httpclient.WithBearerToken(l.tokens.CurrentToken()))
		if err != nil {
			if !transient(err) {
				return catalog.Metadata{}, backoff.Permanent(err)
			}
			return catalog.Metadata{}, err
		}
		return resp.Data.Normalize(), nil
	}

	md, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(l.newBackOff()),
		backoff.WithMaxTries(l.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			l.logger.Debug("Retrying metadata load", "attempt", attempt, "next", next, "error", err)
		}),
	)
	span.SetAttributes(otel.AttrAttempt.Int(attempt))
	if err != nil {
		otel.RecordError(span, err)
		l.logger.Warn("Failed to load filter metadata", "attempts", attempt, "error", err)
		if ctx.Err() == nil {
			l.alerts.AddAlert(alertMessage(err))
		}
		return catalog.Metadata{}, fmt.Errorf("failed to load metadata: %w", err)
	}

	l.logger.Debug("Loaded filter metadata",
		"shapes", len(md.Shapes), "cultures", len(md.Cultures), "tags", len(md.Tags))
	return md, nil
}

// transient reports whether a retry could succeed
func transient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if httpErr, ok := httpclient.AsHTTPError(err); ok {
		return httpErr.Temporary()
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return false
	}
	return true
}

func alertMessage(err error) string {
	if httpErr, ok := httpclient.AsHTTPError(err); ok {
		return httpErr.UserMessage()
	}
	return err.Error()
}
