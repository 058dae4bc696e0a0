// Package otel provides OpenTelemetry span helpers and the attribute keys
// used for catalog requests.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/catalog-browser/internal/catalog"
)

// Attribute keys shared by every span the module emits
const (
	AttrEndpoint      = attribute.Key("catalog.endpoint")
	AttrPage          = attribute.Key("pagination.page")
	AttrTotalPages    = attribute.Key("pagination.total_pages")
	AttrResultCount   = attribute.Key("result.count")
	AttrSequence      = attribute.Key("request.sequence")
	AttrFilterQuery   = attribute.Key("filter.query")
	AttrFilterShape   = attribute.Key("filter.shape")
	AttrFilterCulture = attribute.Key("filter.culture")
	AttrFilterTags    = attribute.Key("filter.tags")
	AttrAttempt       = attribute.Key("retry.attempt")
	AttrArtifactID    = attribute.Key("artifact.id")
)

// StartSpan starts a new span if the tracer is non-nil, otherwise returns a no-op span.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records err on span and marks the span as failed.
// The status description stays generic; the error itself is kept in the
// span event, since request URLs can carry the user's search text.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}

// CriteriaAttributes describes a filtered page request. Empty filters are left out.
func CriteriaAttributes(c catalog.Criteria, page int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{AttrPage.Int(page)}
	if c.Query != "" {
		attrs = append(attrs, AttrFilterQuery.String(c.Query))
	}
	if c.Shape != "" {
		attrs = append(attrs, AttrFilterShape.String(c.Shape))
	}
	if c.Culture != "" {
		attrs = append(attrs, AttrFilterCulture.String(c.Culture))
	}
	if len(c.Tags) > 0 {
		attrs = append(attrs, AttrFilterTags.StringSlice(c.Tags))
	}
	return attrs
}
