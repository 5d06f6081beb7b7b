// Package observability provides an OpenTelemetry-based emitter for
// execution lifecycle events. Register it on the engine to record
// system-wide counts of starts, completions, failures, timeouts,
// retries, and catch transitions, plus an execution duration
// histogram.
//
// For per-invocation tracing and metrics, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/awsdataarchitect/ai-compliance-auditor/engine"
	"github.com/awsdataarchitect/ai-compliance-auditor/execution"
)

// meterName is the instrumentation scope name for emitter metrics.
const meterName = "github.com/awsdataarchitect/ai-compliance-auditor/observability"

var _ engine.Emitter = (*MetricsEmitter)(nil)

// MetricsEmitter records execution lifecycle metrics. All instruments
// carry a "definition" attribute; state-level instruments add "state".
type MetricsEmitter struct {
	started   metric.Int64Counter
	succeeded metric.Int64Counter
	failed    metric.Int64Counter
	timedOut  metric.Int64Counter
	duration  metric.Float64Histogram
	retries   metric.Int64Counter
	catches   metric.Int64Counter
}

// NewMetricsEmitter creates a MetricsEmitter using the global OTel
// MeterProvider. If none is configured, noop instruments are used.
func NewMetricsEmitter() *MetricsEmitter {
	return NewMetricsEmitterWithMeter(otel.Meter(meterName))
}

// NewMetricsEmitterWithMeter creates a MetricsEmitter with the
// provided meter. Use for testing or when multiple providers are in
// use.
func NewMetricsEmitterWithMeter(meter metric.Meter) *MetricsEmitter {
	e := &MetricsEmitter{}

	// On error, the OTel API returns noop instruments, so the emitter
	// degrades gracefully.
	e.started, _ = meter.Int64Counter(
		"auditor.execution.started",
		metric.WithDescription("Total number of executions started"),
		metric.WithUnit("{execution}"),
	)
	e.succeeded, _ = meter.Int64Counter(
		"auditor.execution.succeeded",
		metric.WithDescription("Total number of executions that reached a terminal state normally"),
		metric.WithUnit("{execution}"),
	)
	e.failed, _ = meter.Int64Counter(
		"auditor.execution.failed",
		metric.WithDescription("Total number of executions terminated by an unhandled error"),
		metric.WithUnit("{execution}"),
	)
	e.timedOut, _ = meter.Int64Counter(
		"auditor.execution.timed_out",
		metric.WithDescription("Total number of executions that exceeded their deadline"),
		metric.WithUnit("{execution}"),
	)
	e.duration, _ = meter.Float64Histogram(
		"auditor.execution.duration",
		metric.WithDescription("Duration of successful executions in seconds"),
		metric.WithUnit("s"),
	)
	e.retries, _ = meter.Int64Counter(
		"auditor.state.retries",
		metric.WithDescription("Total number of state retries"),
		metric.WithUnit("{retry}"),
	)
	e.catches, _ = meter.Int64Counter(
		"auditor.state.catches",
		metric.WithDescription("Total number of failures redirected to catch fallbacks"),
		metric.WithUnit("{catch}"),
	)

	return e
}

func defAttr(exec *execution.Execution) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("definition", exec.DefinitionName))
}

// ExecutionStarted implements engine.Emitter.
func (e *MetricsEmitter) ExecutionStarted(ctx context.Context, exec *execution.Execution) {
	e.started.Add(ctx, 1, defAttr(exec))
}

// ExecutionSucceeded implements engine.Emitter.
func (e *MetricsEmitter) ExecutionSucceeded(ctx context.Context, exec *execution.Execution, elapsed time.Duration) {
	e.succeeded.Add(ctx, 1, defAttr(exec))
	e.duration.Record(ctx, elapsed.Seconds(), defAttr(exec))
}

// ExecutionFailed implements engine.Emitter.
func (e *MetricsEmitter) ExecutionFailed(ctx context.Context, exec *execution.Execution, _ error) {
	e.failed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("definition", exec.DefinitionName),
		attribute.String("error_class", exec.Error),
	))
}

// ExecutionTimedOut implements engine.Emitter.
func (e *MetricsEmitter) ExecutionTimedOut(ctx context.Context, exec *execution.Execution) {
	e.timedOut.Add(ctx, 1, defAttr(exec))
}

// StateEntered implements engine.Emitter.
func (e *MetricsEmitter) StateEntered(context.Context, *execution.Execution, string) {}

// StateCompleted implements engine.Emitter.
func (e *MetricsEmitter) StateCompleted(context.Context, *execution.Execution, string, time.Duration) {
}

// StateFailed implements engine.Emitter.
func (e *MetricsEmitter) StateFailed(context.Context, *execution.Execution, string, error) {}

// TaskRetried implements engine.Emitter.
func (e *MetricsEmitter) TaskRetried(ctx context.Context, exec *execution.Execution, stateName string, _ int, _ time.Duration) {
	e.retries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("definition", exec.DefinitionName),
		attribute.String("state", stateName),
	))
}

// CatchTaken implements engine.Emitter.
func (e *MetricsEmitter) CatchTaken(ctx context.Context, exec *execution.Execution, stateName, _ string) {
	e.catches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("definition", exec.DefinitionName),
		attribute.String("state", stateName),
	))
}
