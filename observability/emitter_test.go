package observability_test

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/awsdataarchitect/ai-compliance-auditor/execution"
	"github.com/awsdataarchitect/ai-compliance-auditor/id"
	"github.com/awsdataarchitect/ai-compliance-auditor/observability"
	"github.com/awsdataarchitect/ai-compliance-auditor/task"
)

func testExec() *execution.Execution {
	return &execution.Execution{
		ID:             id.NewExecutionID(),
		DefinitionName: "content-audit",
		Status:         execution.StatusRunning,
		StartedAt:      time.Now().UTC(),
	}
}

func findSum(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Sum[int64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				sum, ok := m.Data.(metricdata.Sum[int64])
				if !ok {
					t.Fatalf("%s: expected Sum[int64], got %T", name, m.Data)
				}
				return sum
			}
		}
	}
	t.Fatalf("metric %s not found", name)
	return metricdata.Sum[int64]{}
}

func TestMetricsEmitterCountsLifecycle(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	em := observability.NewMetricsEmitterWithMeter(mp.Meter("test"))

	ctx := context.Background()
	exec := testExec()

	em.ExecutionStarted(ctx, exec)
	em.ExecutionSucceeded(ctx, exec, 120*time.Millisecond)
	em.TaskRetried(ctx, exec, "AnalyzeContent", 1, time.Second)
	em.TaskRetried(ctx, exec, "AnalyzeContent", 2, 2*time.Second)
	em.CatchTaken(ctx, exec, "SummarizeContent", "SummarizeFallback")

	started := findSum(t, reader, "auditor.execution.started")
	if len(started.DataPoints) == 0 || started.DataPoints[0].Value != 1 {
		t.Fatalf("started = %+v", started.DataPoints)
	}

	retries := findSum(t, reader, "auditor.state.retries")
	if len(retries.DataPoints) == 0 || retries.DataPoints[0].Value != 2 {
		t.Fatalf("retries = %+v", retries.DataPoints)
	}

	catches := findSum(t, reader, "auditor.state.catches")
	if len(catches.DataPoints) == 0 || catches.DataPoints[0].Value != 1 {
		t.Fatalf("catches = %+v", catches.DataPoints)
	}
}

func TestMetricsEmitterFailureCarriesErrorClass(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	em := observability.NewMetricsEmitterWithMeter(mp.Meter("test"))

	exec := testExec()
	exec.Status = execution.StatusFailed
	exec.Error = string(task.ErrorClassTaskFailed)

	em.ExecutionFailed(context.Background(), exec, task.Failedf("boom"))

	failed := findSum(t, reader, "auditor.execution.failed")
	if len(failed.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	found := false
	for _, a := range failed.DataPoints[0].Attributes.ToSlice() {
		if string(a.Key) == "error_class" && a.Value.AsString() == string(task.ErrorClassTaskFailed) {
			found = true
		}
	}
	if !found {
		t.Fatal("error_class attribute missing")
	}
}

func TestMetricsEmitterDefaultNoopSafe(t *testing.T) {
	// Without a global provider the emitter must be a safe no-op.
	em := observability.NewMetricsEmitter()
	em.ExecutionStarted(context.Background(), testExec())
}
