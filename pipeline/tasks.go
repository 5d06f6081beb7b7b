package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/awsdataarchitect/ai-compliance-auditor/document"
	"github.com/awsdataarchitect/ai-compliance-auditor/id"
	"github.com/awsdataarchitect/ai-compliance-auditor/task"
)

// ── review-auditor ─────────────────────────────────────────────────

// Keyword tables for the heuristic scorer. Each hit raises the
// dimension's score; scores clamp to the 0-10 scale the policy
// thresholds are calibrated against.
var (
	toxicityWords = []string{
		"hate", "awful", "terrible", "garbage", "disgusting", "worthless",
	}
	biasWords = []string{
		"always", "never", "everyone", "nobody", "typical",
	}
	hallucinationWords = []string{
		"miracle", "cures", "guaranteed", "100%", "never fails",
	}
)

func reviewAuditorHandler(_ context.Context, payload document.Document) (document.Document, error) {
	reviewID, ok := payload.GetString(document.MustPath("$.review_id"))
	if !ok {
		reviewID = "unknown"
	}
	content, _ := payload.GetString(document.MustPath("$.content"))
	if strings.TrimSpace(content) == "" {
		return nil, task.Failedf("review %s has no content to analyze", reviewID)
	}

	toxicity := scoreKeywords(content, toxicityWords, 3)
	bias := scoreKeywords(content, biasWords, 2.5)
	hallucination := scoreKeywords(content, hallucinationWords, 4)

	return document.Document{
		"review_id":           reviewID,
		"toxicity_score":      toxicity,
		"bias_score":          bias,
		"hallucination_score": hallucination,
		"explanations": map[string]any{
			"toxicity":      explain("toxic language", toxicity),
			"bias":          explain("biased generalizations", bias),
			"hallucination": explain("unverifiable claims", hallucination),
		},
		"model": "keyword-heuristic/v1",
	}, nil
}

// scoreKeywords counts keyword hits in content and scales them by
// weight, clamped to the 0-10 range.
func scoreKeywords(content string, words []string, weight float64) float64 {
	lower := strings.ToLower(content)
	score := 0.0
	for _, w := range words {
		if strings.Contains(lower, w) {
			score += weight
		}
	}
	if score > 10 {
		return 10
	}
	return score
}

func explain(dimension string, score float64) string {
	switch {
	case score == 0:
		return fmt.Sprintf("no %s detected", dimension)
	case score < 5:
		return fmt.Sprintf("some %s detected", dimension)
	default:
		return fmt.Sprintf("significant %s detected", dimension)
	}
}

// ── policy-validator ───────────────────────────────────────────────

type thresholds struct {
	Toxicity      float64
	Bias          float64
	Hallucination float64
}

// complianceModes maps a compliance mode to its score thresholds. A
// score at or above the threshold is a violation. Unknown modes fall
// back to standard.
var complianceModes = map[string]thresholds{
	"strict":   {Toxicity: 3, Bias: 2, Hallucination: 4},
	"standard": {Toxicity: 5, Bias: 4, Hallucination: 6},
	"mild":     {Toxicity: 8, Bias: 7, Hallucination: 8},
}

func policyValidatorHandler(_ context.Context, payload document.Document) (document.Document, error) {
	// Missing scores read as maximum risk so a malformed analysis
	// result can never approve content.
	toxicity := scoreOrMax(payload, "$.analysis_result.toxicity_score")
	bias := scoreOrMax(payload, "$.analysis_result.bias_score")
	hallucination := scoreOrMax(payload, "$.analysis_result.hallucination_score")

	mode, ok := payload.GetString(document.MustPath("$.policy_context.compliance_mode"))
	if !ok {
		mode = "standard"
	}
	th, ok := complianceModes[mode]
	if !ok {
		mode = "standard"
		th = complianceModes[mode]
	}

	var violations []any
	if toxicity >= th.Toxicity {
		violations = append(violations, "TOXICITY_THRESHOLD_EXCEEDED")
	}
	if bias >= th.Bias {
		violations = append(violations, "BIAS_THRESHOLD_EXCEEDED")
	}
	if hallucination >= th.Hallucination {
		violations = append(violations, "HALLUCINATION_THRESHOLD_EXCEEDED")
	}

	decision := "ALLOW"
	verdict := "approved"
	reasons := []any{"CONTENT_APPROVED"}
	if len(violations) > 0 {
		decision = "DENY"
		verdict = "rejected"
		reasons = violations
	}

	return document.Document{
		"decision":    decision,
		"reasons":     reasons,
		"explanation": fmt.Sprintf("content %s under %s compliance mode", verdict, mode),
		"thresholds_applied": map[string]any{
			"toxicity":      th.Toxicity,
			"bias":          th.Bias,
			"hallucination": th.Hallucination,
		},
	}, nil
}

func scoreOrMax(payload document.Document, path string) float64 {
	if v, ok := payload.GetNumber(document.MustPath(path)); ok {
		return v
	}
	return 10
}

// ── review-summarizer ──────────────────────────────────────────────

func reviewSummarizerHandler(_ context.Context, payload document.Document) (document.Document, error) {
	content, _ := payload.GetString(document.MustPath("$.content"))
	if strings.TrimSpace(content) == "" {
		return nil, task.Failedf("no review content to summarize")
	}
	productID, ok := payload.GetString(document.MustPath("$.product_id"))
	if !ok {
		productID = "unknown"
	}
	rating, ok := payload.GetNumber(document.MustPath("$.rating"))
	if !ok {
		rating = 3
	}

	sentiment := "mixed"
	switch {
	case rating >= 4:
		sentiment = "positive"
	case rating <= 2:
		sentiment = "negative"
	}

	return document.Document{
		"product_id": productID,
		"summary":    fmt.Sprintf("Customers rate this product %.1f/5 with %s feedback overall.", rating, sentiment),
		"sentiment":  sentiment,
		"confidence": 0.8,
		"summary_metadata": map[string]any{
			"reviews_included": float64(1),
			"average_rating":   rating,
		},
	}, nil
}

// ── audit-logger ───────────────────────────────────────────────────

// auditLoggerHandler writes one audit record per invocation. Sink
// failures surface as transient so the state's retry policy applies.
func auditLoggerHandler(sink AuditSink) task.Handler {
	return func(ctx context.Context, payload document.Document) (document.Document, error) {
		rec := AuditRecord{
			ID:        id.NewAuditID(),
			Timestamp: time.Now().UTC(),
			EventType: stringOr(payload, "$.event_type", "UNKNOWN"),
			ReviewID:  stringOr(payload, "$.review_id", "unknown"),
			Decision:  stringOr(payload, "$.decision", ""),
		}
		rec.ExecutionID = stringOr(payload, "$.execution_id", "")
		if v, ok := payload.Get(document.MustPath("$.analysis")); ok {
			if analysis, isMap := v.(map[string]any); isMap {
				rec.Analysis = analysis
			}
		}

		if err := sink.Append(ctx, rec); err != nil {
			return nil, task.Transientf("audit sink unavailable: %v", err)
		}

		return document.Document{
			"audit_id":         rec.ID.String(),
			"events_processed": float64(1),
		}, nil
	}
}

func stringOr(payload document.Document, path, fallback string) string {
	if v, ok := payload.GetString(document.MustPath(path)); ok {
		return v
	}
	return fallback
}
