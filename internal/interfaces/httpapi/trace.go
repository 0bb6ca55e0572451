package httpapi

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var apiTracer = otel.Tracer("chess-wager/internal/interfaces/httpapi")

// startSpan opens a handler span under the otelhttp request span and tags it
// with the caller. Routes skipped by RequestTracing get no span at all.
func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if !trace.SpanContextFromContext(ctx).IsValid() {
		return ctx, trace.SpanFromContext(ctx)
	}
	var attrs []attribute.KeyValue
	if p, ok := principalFromContext(ctx); ok && p.UserID != "" {
		attrs = append(attrs, attribute.String("enduser.id", p.UserID))
	}
	return apiTracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
