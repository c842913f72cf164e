package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the eventkit tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("eventkit")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartTriggerSpan starts a span covering the submission of one firing.
	StartTriggerSpan(ctx context.Context, event, firingID string) (context.Context, trace.Span)

	// StartHandlerSpan starts a span for one handler invocation.
	// Deferred invocations link to the trigger span through ctx.
	StartHandlerSpan(ctx context.Context, event, handler, kind string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartTriggerSpan starts a span for one firing.
func (m *otelSpanManager) StartTriggerSpan(ctx context.Context, event, firingID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "eventkit.trigger",
		trace.WithAttributes(
			attribute.String("event.name", event),
			attribute.String("event.firing_id", firingID),
		),
		trace.WithSpanKind(trace.SpanKindProducer),
	)
}

// StartHandlerSpan starts a span for a handler invocation.
func (m *otelSpanManager) StartHandlerSpan(ctx context.Context, event, handler, kind string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "eventkit.handler",
		trace.WithAttributes(
			attribute.String("event.name", event),
			attribute.String("handler.name", handler),
			attribute.String("handler.kind", kind),
		),
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
