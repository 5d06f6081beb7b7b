package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/awsdataarchitect/ai-compliance-auditor/document"
	"github.com/awsdataarchitect/ai-compliance-auditor/task"
)

// meterName is the instrumentation scope name for auditor metrics.
const meterName = "github.com/awsdataarchitect/ai-compliance-auditor"

// Metrics returns middleware that records per-task invocation metrics
// using the global OTel MeterProvider. If no MeterProvider is
// configured, noop instruments are used and this middleware becomes a
// pass-through.
//
// Instruments:
//   - auditor.task.duration (Float64Histogram): invocation time in
//     seconds, with attributes: task, status ("ok" or the error class)
//   - auditor.task.invocations (Int64Counter): total invocations,
//     with attributes: task, status ("ok" or the error class)
func Metrics() Middleware {
	meter := otel.Meter(meterName)
	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics middleware using the provided
// meter. This variant allows injecting a specific MeterProvider for
// testing.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// Create instruments once at middleware construction time.
	// OTel instruments are safe for concurrent use. On error, the API
	// returns noop instruments so the middleware degrades gracefully.
	duration, dErr := meter.Float64Histogram(
		"auditor.task.duration",
		metric.WithDescription("Duration of task invocation in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr // noop fallback guaranteed by OTel API contract

	invocations, iErr := meter.Int64Counter(
		"auditor.task.invocations",
		metric.WithDescription("Total number of task invocations"),
		metric.WithUnit("{invocation}"),
	)
	_ = iErr // noop fallback guaranteed by OTel API contract

	return func(ctx context.Context, inv *Invocation, next Handler) (document.Document, error) {
		start := time.Now()
		out, err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = string(task.ClassOf(err))
		}

		attrs := metric.WithAttributes(
			attribute.String("task", inv.Task),
			attribute.String("status", status),
		)

		duration.Record(ctx, elapsed, attrs)
		invocations.Add(ctx, 1, attrs)

		return out, err
	}
}
