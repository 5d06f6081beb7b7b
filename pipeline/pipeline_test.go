package pipeline_test

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/awsdataarchitect/ai-compliance-auditor/document"
	"github.com/awsdataarchitect/ai-compliance-auditor/engine"
	"github.com/awsdataarchitect/ai-compliance-auditor/execution"
	"github.com/awsdataarchitect/ai-compliance-auditor/pipeline"
	"github.com/awsdataarchitect/ai-compliance-auditor/store/memory"
	"github.com/awsdataarchitect/ai-compliance-auditor/task"
)

func review(content, mode string) document.Document {
	return document.Document{
		"review_id":        "rev-123",
		"product_id":       "prod-9",
		"product_category": "electronics",
		"rating":           float64(5),
		"content":          content,
		"policy_context":   map[string]any{"compliance_mode": mode},
	}
}

// newPipeline builds an engine running the shipped definition with the
// given registry. Retry intervals shrink so failure tests stay fast.
func newPipeline(t *testing.T, reg *task.Registry) *engine.Engine {
	t.Helper()

	def, err := pipeline.Definition()
	if err != nil {
		t.Fatalf("load definition: %v", err)
	}
	def.States["AnalyzeContent"].Retry[0].IntervalSeconds = 0.005

	eng, err := engine.New(
		engine.WithStore(memory.New()),
		engine.WithInvoker(reg),
	)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	if err := eng.Register(def); err != nil {
		t.Fatalf("register: %v", err)
	}
	return eng
}

func run(t *testing.T, eng *engine.Engine, input document.Document) *execution.Execution {
	t.Helper()
	exec, err := eng.StartExecution(context.Background(), "ai-compliance-auditor", input)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return exec
}

func outputDoc(t *testing.T, exec *execution.Execution) document.Document {
	t.Helper()
	doc, err := document.FromJSON(exec.Output)
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	return doc
}

func decisionOf(t *testing.T, doc document.Document) string {
	t.Helper()
	d, ok := doc.GetString(document.MustPath("$.decision.policy_decision"))
	if !ok {
		t.Fatalf("output has no policy decision: %v", doc)
	}
	return d
}

func TestDefinitionLoads(t *testing.T) {
	def, err := pipeline.Definition()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if def.StartAt != "ValidateInput" {
		t.Fatalf("start_at = %q", def.StartAt)
	}
	if def.TimeoutSeconds != 300 {
		t.Fatalf("timeout_seconds = %d", def.TimeoutSeconds)
	}
}

func TestApprovedReviewRunsBothBranches(t *testing.T) {
	sink := pipeline.NewMemorySink()
	eng := newPipeline(t, pipeline.NewRegistry(sink))

	exec := run(t, eng, review("Great build quality, works exactly as described.", "standard"))
	if exec.Status != execution.StatusSucceeded {
		t.Fatalf("status = %q, cause = %q", exec.Status, exec.Cause)
	}

	out := outputDoc(t, exec)
	if d := decisionOf(t, out); d != "APPROVED" {
		t.Fatalf("policy_decision = %q, want APPROVED", d)
	}
	if summary, ok := out.GetString(document.MustPath("$.paths[0].summary.summary")); !ok || summary == "" {
		t.Fatalf("summarize branch produced no summary: %v", out)
	}
	if _, ok := out.GetString(document.MustPath("$.paths[1].audit.audit_id")); !ok {
		t.Fatalf("audit branch produced no audit id: %v", out)
	}

	recs := sink.Records()
	if len(recs) != 1 {
		t.Fatalf("audit records = %d, want 1", len(recs))
	}
	if recs[0].EventType != "REVIEW_APPROVED" {
		t.Fatalf("event_type = %q", recs[0].EventType)
	}
	if recs[0].Decision != "ALLOW" {
		t.Fatalf("decision = %q", recs[0].Decision)
	}
	if recs[0].ExecutionID != exec.ID.String() {
		t.Fatalf("execution_id = %q, want %q", recs[0].ExecutionID, exec.ID)
	}
}

func TestDeniedReviewTakesRejectedPath(t *testing.T) {
	sink := pipeline.NewMemorySink()
	reg := pipeline.NewRegistry(sink)
	reg.Register(pipeline.TaskPolicyValidator, func(_ context.Context, _ document.Document) (document.Document, error) {
		return document.Document{"decision": "DENY", "reasons": []any{"STUBBED"}}, nil
	})
	var summarized atomic.Int32
	reg.Register(pipeline.TaskReviewSummarizer, func(_ context.Context, _ document.Document) (document.Document, error) {
		summarized.Add(1)
		return document.Document{"summary": "should not run"}, nil
	})
	eng := newPipeline(t, reg)

	exec := run(t, eng, review("Great build quality, works exactly as described.", "standard"))
	if exec.Status != execution.StatusSucceeded {
		t.Fatalf("status = %q, cause = %q", exec.Status, exec.Cause)
	}
	if d := decisionOf(t, outputDoc(t, exec)); d != "DENIED" {
		t.Fatalf("policy_decision = %q, want DENIED", d)
	}
	if n := summarized.Load(); n != 0 {
		t.Fatalf("summarizer invoked %d times on the rejected path", n)
	}

	recs := sink.Records()
	if len(recs) != 1 || recs[0].EventType != "REVIEW_REJECTED" {
		t.Fatalf("audit records = %+v, want one REVIEW_REJECTED", recs)
	}
}

func TestTransientAnalysisFailureExhaustsRetries(t *testing.T) {
	sink := pipeline.NewMemorySink()
	reg := pipeline.NewRegistry(sink)
	var calls atomic.Int32
	reg.Register(pipeline.TaskReviewAuditor, func(_ context.Context, _ document.Document) (document.Document, error) {
		n := calls.Add(1)
		return nil, task.Transientf("model endpoint unavailable, attempt %d", n)
	})
	eng := newPipeline(t, reg)

	exec := run(t, eng, review("anything", "standard"))
	if exec.Status != execution.StatusFailed {
		t.Fatalf("status = %q, want failed", exec.Status)
	}
	// max_attempts is 2 retries after the initial call.
	if n := calls.Load(); n != 3 {
		t.Fatalf("invocations = %d, want 3", n)
	}
	if exec.Error != string(task.ErrorClassTransient) {
		t.Fatalf("error class = %q", exec.Error)
	}
	if !strings.Contains(exec.Cause, "attempt 3") {
		t.Fatalf("cause = %q, want the last failure", exec.Cause)
	}
	if len(sink.Records()) != 0 {
		t.Fatalf("audit records written for a failed execution")
	}
}

func TestCaughtAnalysisFailureFallsBackToHighRisk(t *testing.T) {
	sink := pipeline.NewMemorySink()
	reg := pipeline.NewRegistry(sink)
	reg.Register(pipeline.TaskReviewAuditor, func(_ context.Context, _ document.Document) (document.Document, error) {
		return nil, task.Failedf("model returned malformed analysis")
	})
	eng := newPipeline(t, reg)

	exec := run(t, eng, review("anything", "standard"))
	if exec.Status != execution.StatusSucceeded {
		t.Fatalf("status = %q, cause = %q", exec.Status, exec.Cause)
	}

	out := outputDoc(t, exec)
	if class, ok := out.GetString(document.MustPath("$.analysis_error.error")); !ok || class != string(task.ErrorClassTaskFailed) {
		t.Fatalf("recorded error class = %q", class)
	}
	if cause, ok := out.GetString(document.MustPath("$.analysis_error.cause")); !ok || !strings.Contains(cause, "malformed analysis") {
		t.Fatalf("recorded cause = %q", cause)
	}

	// The fallback scores everything at maximum risk, so policy denies.
	if score, ok := out.GetNumber(document.MustPath("$.analysis_result.toxicity_score")); !ok || score != 10 {
		t.Fatalf("fallback toxicity_score = %v", score)
	}
	if d := decisionOf(t, out); d != "DENIED" {
		t.Fatalf("policy_decision = %q, want DENIED", d)
	}

	recs := sink.Records()
	if len(recs) != 1 || recs[0].EventType != "REVIEW_REJECTED" {
		t.Fatalf("audit records = %+v, want one REVIEW_REJECTED", recs)
	}
}

func TestSummarizerFailureDoesNotFailApprovedPath(t *testing.T) {
	sink := pipeline.NewMemorySink()
	reg := pipeline.NewRegistry(sink)
	reg.Register(pipeline.TaskReviewSummarizer, func(_ context.Context, _ document.Document) (document.Document, error) {
		return nil, task.Failedf("summarizer model offline")
	})
	eng := newPipeline(t, reg)

	exec := run(t, eng, review("Great build quality, works exactly as described.", "standard"))
	if exec.Status != execution.StatusSucceeded {
		t.Fatalf("status = %q, cause = %q", exec.Status, exec.Cause)
	}

	out := outputDoc(t, exec)
	if d := decisionOf(t, out); d != "APPROVED" {
		t.Fatalf("policy_decision = %q, want APPROVED", d)
	}
	if summary, ok := out.GetString(document.MustPath("$.paths[0].summary.summary")); !ok || summary != "summary unavailable" {
		t.Fatalf("fallback summary = %q", summary)
	}
	if cause, ok := out.GetString(document.MustPath("$.paths[0].error_info.cause")); !ok || !strings.Contains(cause, "offline") {
		t.Fatalf("branch error_info cause = %q", cause)
	}
	if recs := sink.Records(); len(recs) != 1 || recs[0].EventType != "REVIEW_APPROVED" {
		t.Fatalf("audit records = %+v, want one REVIEW_APPROVED", recs)
	}
}

func TestPolicyThresholdsByComplianceMode(t *testing.T) {
	reg := pipeline.NewRegistry(pipeline.NewMemorySink())

	validate := func(t *testing.T, mode string, toxicity, bias, hallucination float64) string {
		t.Helper()
		out, err := reg.Invoke(context.Background(), pipeline.TaskPolicyValidator, document.Document{
			"analysis_result": map[string]any{
				"toxicity_score":      toxicity,
				"bias_score":          bias,
				"hallucination_score": hallucination,
			},
			"policy_context": map[string]any{"compliance_mode": mode},
		})
		if err != nil {
			t.Fatalf("invoke: %v", err)
		}
		decision, _ := out.GetString(document.MustPath("$.decision"))
		return decision
	}

	tests := []struct {
		name                        string
		mode                        string
		toxicity, bias, hallucination float64
		want                        string
	}{
		{"moderate scores pass standard", "standard", 4, 3, 5, "ALLOW"},
		{"moderate scores fail strict", "strict", 4, 3, 5, "DENY"},
		{"high scores pass mild", "mild", 7, 6, 7, "ALLOW"},
		{"high scores fail standard", "standard", 7, 6, 7, "DENY"},
		{"threshold boundary denies", "standard", 5, 0, 0, "DENY"},
		{"unknown mode falls back to standard", "paranoid", 4, 3, 5, "ALLOW"},
		{"maximum scores deny everywhere", "mild", 10, 10, 10, "DENY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := validate(t, tt.mode, tt.toxicity, tt.bias, tt.hallucination)
			if got != tt.want {
				t.Fatalf("decision = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReviewAuditorScoresKeywords(t *testing.T) {
	reg := pipeline.NewRegistry(pipeline.NewMemorySink())

	analyze := func(t *testing.T, content string) document.Document {
		t.Helper()
		out, err := reg.Invoke(context.Background(), pipeline.TaskReviewAuditor, document.Document{
			"review_id": "rev-1",
			"content":   content,
		})
		if err != nil {
			t.Fatalf("invoke: %v", err)
		}
		return out
	}

	clean := analyze(t, "Solid product, arrived on time.")
	if score, _ := clean.GetNumber(document.MustPath("$.toxicity_score")); score != 0 {
		t.Fatalf("clean toxicity = %v", score)
	}

	toxic := analyze(t, "Absolutely terrible, this garbage is worthless.")
	if score, _ := toxic.GetNumber(document.MustPath("$.toxicity_score")); score < 5 {
		t.Fatalf("toxic score = %v, want >= 5", score)
	}

	hallucinated := analyze(t, "This miracle device is guaranteed to work 100% of the time.")
	if score, _ := hallucinated.GetNumber(document.MustPath("$.hallucination_score")); score < 5 {
		t.Fatalf("hallucination score = %v, want >= 5", score)
	}

	if _, err := reg.Invoke(context.Background(), pipeline.TaskReviewAuditor, document.Document{"review_id": "rev-2"}); err == nil {
		t.Fatal("empty content should fail analysis")
	}
}
