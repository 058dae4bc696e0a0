// Package detail loads a single artifact from the catalog's detail endpoint.
package detail

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/catalog-browser/internal/alert"
	"github.com/stacklok/catalog-browser/internal/auth"
	"github.com/stacklok/catalog-browser/internal/catalog"
	"github.com/stacklok/catalog-browser/internal/httpclient"
	"github.com/stacklok/catalog-browser/internal/otel"
)

// URLFunc returns the detail URL of the artifact with id
type URLFunc func(id int) (string, error)

// Loader fetches artifact details
type Loader struct {
	url    URLFunc
	client httpclient.Client
	tokens auth.TokenSource
	alerts alert.Alerter
	tracer trace.Tracer
	logger *slog.Logger
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader)

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

// NewLoader creates a loader. A nil tokens is anonymous; a nil alerts logs
// failures instead.
func NewLoader(
	url URLFunc,
	client httpclient.Client,
	tokens auth.TokenSource,
	alerts alert.Alerter,
	opts ...LoaderOption,
) *Loader {
	l := &Loader{
		url:    url,
		client: client,
		tokens: tokens,
		alerts: alerts,
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

// Load fetches the artifact with id. A failed request is reported to the
// alerter once and returned; a cancelled one only returns.
func (l *Loader) Load(ctx context.Context, id int) (catalog.ArtifactDetail, error) {
	if id < 1 {
		return catalog.ArtifactDetail{}, fmt.Errorf("invalid artifact id %d", id)
	}
	endpoint, err := l.url(id)
	if err != nil {
		return catalog.ArtifactDetail{}, err
	}

	ctx, span := otel.StartSpan(ctx, l.tracer, "detail.Load",
		trace.WithAttributes(otel.AttrEndpoint.String(endpoint), otel.AttrArtifactID.Int(id)))
	defer span.End()

	d, err := httpclient.GetJSON[catalog.ArtifactDetail](ctx, l.client, endpoint,
		httpclient.WithBearerToken(l.tokens.CurrentToken()))
	if err != nil {
		otel.RecordError(span, err)
		l.logger.Warn("Failed to load artifact", "id", id, "error", err)
		if ctx.Err() == nil {
			l.alerts.AddAlert(alertMessage(err))
		}
		return catalog.ArtifactDetail{}, fmt.Errorf("failed to load artifact %d: %w", id, err)
	}
	if d.Images == nil {
		d.Images = []string{}
	}

	l.logger.Debug("Loaded artifact", "id", id, "images", len(d.Images))
	return d, nil
}

func alertMessage(err error) string {
	if httpErr, ok := httpclient.AsHTTPError(err); ok {
		return httpErr.UserMessage()
	}
	return err.Error()
}
