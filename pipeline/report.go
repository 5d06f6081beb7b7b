package pipeline

import (
	"context"
	"math"
	"time"

	"github.com/awsdataarchitect/ai-compliance-auditor/document"
	"github.com/awsdataarchitect/ai-compliance-auditor/id"
	"github.com/awsdataarchitect/ai-compliance-auditor/task"
)

// Report types the report-generator task accepts.
const (
	ReportComplianceSummary = "compliance_summary"
	ReportPolicyViolations  = "policy_violations"
)

// maxReportViolations caps the violation detail list so report
// documents stay bounded.
const maxReportViolations = 100

// reportGeneratorHandler builds compliance reports over the audit
// trail. The payload names a report type and an inclusive date range;
// the report aggregates every audit record in that range.
func reportGeneratorHandler(src AuditQuerier) task.Handler {
	return func(ctx context.Context, payload document.Document) (document.Document, error) {
		reportType := stringOr(payload, "$.report_type", ReportComplianceSummary)

		startStr, okStart := payload.GetString(document.MustPath("$.start_date"))
		endStr, okEnd := payload.GetString(document.MustPath("$.end_date"))
		if !okStart || !okEnd {
			return nil, task.Failedf("start_date and end_date are required")
		}
		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return nil, task.Failedf("invalid start_date %q: %v", startStr, err)
		}
		end, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return nil, task.Failedf("invalid end_date %q: %v", endStr, err)
		}

		recs, err := src.Query(ctx, AuditQuery{
			Start:    start,
			End:      end,
			ReviewID: stringOr(payload, "$.review_id", ""),
		})
		if err != nil {
			return nil, task.Transientf("query audit trail: %v", err)
		}

		var body document.Document
		switch reportType {
		case ReportComplianceSummary:
			body = complianceSummaryReport(recs)
		case ReportPolicyViolations:
			body = policyViolationsReport(recs)
		default:
			return nil, task.Failedf("unknown report type %q", reportType)
		}

		body["report_metadata"] = map[string]any{
			"report_id":    id.NewReportID().String(),
			"report_type":  reportType,
			"generated_at": time.Now().UTC().Format(time.RFC3339Nano),
			"period": map[string]any{
				"start_date": start.Format(time.RFC3339),
				"end_date":   end.Format(time.RFC3339),
			},
			"records_processed": float64(len(recs)),
		}
		return body, nil
	}
}

func complianceSummaryReport(recs []AuditRecord) document.Document {
	total := len(recs)
	violations := 0
	byType := map[string]any{}
	for _, rec := range recs {
		if rec.Decision == "DENY" {
			violations++
		}
		n, _ := byType[rec.EventType].(float64)
		byType[rec.EventType] = n + 1
	}

	approvalRate := 100.0
	rejectionRate := 0.0
	if total > 0 {
		approvalRate = float64(total-violations) / float64(total) * 100
		rejectionRate = float64(violations) / float64(total) * 100
	}

	return document.Document{
		"summary": map[string]any{
			"total_records":           float64(total),
			"policy_violations":       float64(violations),
			"compliance_rate_percent": round2(approvalRate),
		},
		"event_breakdown": byType,
		"compliance_metrics": map[string]any{
			"approved_content":       float64(total - violations),
			"rejected_content":       float64(violations),
			"approval_rate_percent":  round2(approvalRate),
			"rejection_rate_percent": round2(rejectionRate),
		},
	}
}

func policyViolationsReport(recs []AuditRecord) document.Document {
	var violations []any
	reviewsAffected := map[string]bool{}
	for _, rec := range recs {
		if rec.Decision != "DENY" {
			continue
		}
		reviewsAffected[rec.ReviewID] = true
		if len(violations) >= maxReportViolations {
			continue
		}
		violations = append(violations, map[string]any{
			"event_id":  rec.ID.String(),
			"timestamp": rec.Timestamp.Format(time.RFC3339Nano),
			"review_id": rec.ReviewID,
			"analysis_scores": map[string]any{
				"toxicity":      analysisScore(rec, "toxicity_score"),
				"bias":          analysisScore(rec, "bias_score"),
				"hallucination": analysisScore(rec, "hallucination_score"),
			},
		})
	}

	totalViolations := 0
	for _, rec := range recs {
		if rec.Decision == "DENY" {
			totalViolations++
		}
	}

	return document.Document{
		"summary": map[string]any{
			"total_violations":        float64(totalViolations),
			"unique_reviews_affected": float64(len(reviewsAffected)),
		},
		"violations": violations,
	}
}

func analysisScore(rec AuditRecord, key string) float64 {
	if rec.Analysis == nil {
		return 0
	}
	v, _ := rec.Analysis[key].(float64)
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
