package usecase

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var usecaseTracer = otel.Tracer("chess-wager/internal/usecase")

// Span attribute keys shared by the services.
const (
	attrWagerID  = attribute.Key("wager.id")
	attrGameID   = attribute.Key("chess.game_id")
	attrSeasonID = attribute.Key("season.id")
	attrUserID   = attribute.Key("user.id")
)

// startUsecaseSpan opens a child span only when ctx already carries a
// sampled-in trace, so scheduler ticks without a root stay untraced. The
// returned span is never nil.
func startUsecaseSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if !trace.SpanContextFromContext(ctx).IsValid() {
		return ctx, trace.SpanFromContext(ctx)
	}
	return usecaseTracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
