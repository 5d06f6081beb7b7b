// Package pipeline ships the content-moderation workflow the engine
// was built around: a product review flows through heuristic content
// analysis, threshold-based policy evaluation, a decision split, and
// parallel summarization and audit logging on approval.
//
// The definition is embedded; handlers are deterministic in-process
// implementations registered on a task.Registry:
//
//	sink := pipeline.NewMemorySink()
//	eng, err := engine.New(
//		engine.WithStore(memory.New()),
//		engine.WithInvoker(pipeline.NewRegistry(sink)),
//	)
package pipeline

import (
	_ "embed"

	"github.com/awsdataarchitect/ai-compliance-auditor/state"
	"github.com/awsdataarchitect/ai-compliance-auditor/task"
)

//go:embed definition.yaml
var definitionYAML []byte

// Task names the pipeline definition references.
const (
	TaskReviewAuditor    = "review-auditor"
	TaskPolicyValidator  = "policy-validator"
	TaskReviewSummarizer = "review-summarizer"
	TaskAuditLogger      = "audit-logger"
	TaskReportGenerator  = "report-generator"
)

// Definition loads the embedded pipeline definition. Each call returns
// a fresh graph, so callers may adjust timeouts or retry intervals
// before registering it.
func Definition() (*state.Definition, error) {
	return state.Load(definitionYAML)
}

// NewRegistry builds a task registry with the pipeline handlers
// registered. Audit records produced by the audit-logger task go to
// sink; when sink also implements AuditQuerier, the report-generator
// task is registered over it.
func NewRegistry(sink AuditSink) *task.Registry {
	r := task.NewRegistry()
	r.Register(TaskReviewAuditor, reviewAuditorHandler)
	r.Register(TaskPolicyValidator, policyValidatorHandler)
	r.Register(TaskReviewSummarizer, reviewSummarizerHandler)
	r.Register(TaskAuditLogger, auditLoggerHandler(sink))
	if src, ok := sink.(AuditQuerier); ok {
		r.Register(TaskReportGenerator, reportGeneratorHandler(src))
	}
	return r
}
