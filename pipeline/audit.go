package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/awsdataarchitect/ai-compliance-auditor/id"
)

// AuditRecord is one immutable entry in the compliance audit trail.
type AuditRecord struct {
	ID          id.AuditID     `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	EventType   string         `json:"event_type"`
	ReviewID    string         `json:"review_id"`
	Decision    string         `json:"decision"`
	ExecutionID string         `json:"execution_id"`
	Analysis    map[string]any `json:"analysis,omitempty"`
}

// AuditSink receives audit records from the audit-logger task. Append
// must be safe for concurrent use: the approved path writes from a
// parallel branch.
type AuditSink interface {
	Append(ctx context.Context, rec AuditRecord) error
}

// AuditQuery filters audit records for report generation. Start and End
// bound the record timestamp inclusively; empty string filters match
// everything.
type AuditQuery struct {
	Start     time.Time
	End       time.Time
	EventType string
	ReviewID  string
}

// AuditQuerier is the read side of an audit trail. Sinks that also
// implement it can serve compliance reports.
type AuditQuerier interface {
	Query(ctx context.Context, q AuditQuery) ([]AuditRecord, error)
}

// MemorySink is an in-process AuditSink that keeps records in
// arrival order. Useful for tests and single-process deployments.
type MemorySink struct {
	mu      sync.Mutex
	records []AuditRecord
}

// NewMemorySink creates an empty in-memory audit sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append implements AuditSink.
func (s *MemorySink) Append(_ context.Context, rec AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// Records returns a snapshot of all appended records.
func (s *MemorySink) Records() []AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuditRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Query implements AuditQuerier.
func (s *MemorySink) Query(_ context.Context, q AuditQuery) ([]AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []AuditRecord
	for _, rec := range s.records {
		if !q.Start.IsZero() && rec.Timestamp.Before(q.Start) {
			continue
		}
		if !q.End.IsZero() && rec.Timestamp.After(q.End) {
			continue
		}
		if q.EventType != "" && rec.EventType != q.EventType {
			continue
		}
		if q.ReviewID != "" && rec.ReviewID != q.ReviewID {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
