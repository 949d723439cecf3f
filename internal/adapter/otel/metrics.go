package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "missioncontrol"

// Metrics holds the Mission Control metric instruments. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	EventsProcessed metric.Int64Counter
	TasksCompleted  metric.Int64Counter
	EventDuration   metric.Float64Histogram
	UsageBuckets    metric.Int64Counter
	UsageFailures   metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.EventsProcessed, err = meter.Int64Counter("missioncontrol.events.processed",
		metric.WithDescription("Run lifecycle events processed, by action and outcome"))
	if err != nil {
		return nil, err
	}

	m.TasksCompleted, err = meter.Int64Counter("missioncontrol.tasks.completed",
		metric.WithDescription("Tasks finished by a run, by final status"))
	if err != nil {
		return nil, err
	}

	m.EventDuration, err = meter.Float64Histogram("missioncontrol.event.duration_seconds",
		metric.WithDescription("Time spent processing one run event"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	m.UsageBuckets, err = meter.Int64Counter("missioncontrol.usage.buckets_upserted",
		metric.WithDescription("Usage buckets written, by granularity"))
	if err != nil {
		return nil, err
	}

	m.UsageFailures, err = meter.Int64Counter("missioncontrol.usage.fetch_failures",
		metric.WithDescription("Failed billing report fetches, by report"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordEvent counts one processed event and its latency.
func (m *Metrics) RecordEvent(ctx context.Context, action, outcome string, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("action", action), attribute.String("outcome", outcome))
	m.EventsProcessed.Add(ctx, 1, attrs)
	m.EventDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("action", action)))
}

// RecordCompletion counts a task reaching a terminal status from a run.
func (m *Metrics) RecordCompletion(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.TasksCompleted.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordUsage counts buckets written by a reconciliation.
func (m *Metrics) RecordUsage(ctx context.Context, granularity string, buckets int) {
	if m == nil {
		return
	}
	m.UsageBuckets.Add(ctx, int64(buckets), metric.WithAttributes(attribute.String("granularity", granularity)))
}

// RecordUsageFailure counts a failed cost or usage report fetch.
func (m *Metrics) RecordUsageFailure(ctx context.Context, report string) {
	if m == nil {
		return
	}
	m.UsageFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("report", report)))
}
