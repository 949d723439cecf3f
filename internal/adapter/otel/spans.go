package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "missioncontrol"

// StartEventSpan starts a span for processing one run lifecycle event.
func StartEventSpan(ctx context.Context, runID, action string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "runevent.process",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.action", action),
		),
	)
}

// StartReconcileSpan starts a span for one usage reconciliation tick.
func StartReconcileSpan(ctx context.Context, granularity string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "usage.reconcile",
		trace.WithAttributes(attribute.String("usage.granularity", granularity)),
	)
}

// StartDispatchSpan starts a span for dispatching a task to an agent.
func StartDispatchSpan(ctx context.Context, agentName string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "dispatch",
		trace.WithAttributes(attribute.String("agent.name", agentName)),
	)
}
