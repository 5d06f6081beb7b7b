package redis

import (
	"context"
	"fmt"
	"sort"
	"time"

	auditor "github.com/awsdataarchitect/ai-compliance-auditor"
	"github.com/awsdataarchitect/ai-compliance-auditor/execution"
	"github.com/awsdataarchitect/ai-compliance-auditor/id"
)

// CreateExecution stores the execution as a Hash and indexes it for
// enumeration.
func (s *Store) CreateExecution(ctx context.Context, e *execution.Execution) error {
	eID := e.ID.String()
	key := execKey(eID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("auditor/redis: create check exists: %w", err)
	}
	if exists > 0 {
		return auditor.ErrExecutionExists
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, execToMap(e))
	pipe.SAdd(ctx, execIDsKey, eID)
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("auditor/redis: create execution: %w", err)
	}
	return nil
}

// GetExecution retrieves an execution by ID.
func (s *Store) GetExecution(ctx context.Context, execID id.ExecutionID) (*execution.Execution, error) {
	return s.getByKey(ctx, execKey(execID.String()))
}

// UpdateExecution persists changes to an existing execution.
func (s *Store) UpdateExecution(ctx context.Context, e *execution.Execution) error {
	key := execKey(e.ID.String())

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("auditor/redis: update check exists: %w", err)
	}
	if exists == 0 {
		return auditor.ErrExecutionNotFound
	}

	if _, err = s.client.HSet(ctx, key, execToMap(e)).Result(); err != nil {
		return fmt.Errorf("auditor/redis: update execution: %w", err)
	}
	return nil
}

// ListExecutions returns executions matching the given options,
// ordered by start time descending.
func (s *Store) ListExecutions(ctx context.Context, opts execution.ListOpts) ([]*execution.Execution, error) {
	ids, err := s.client.SMembers(ctx, execIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("auditor/redis: list smembers: %w", err)
	}

	execs := make([]*execution.Execution, 0, len(ids))
	for _, eID := range ids {
		e, getErr := s.getByKey(ctx, execKey(eID))
		if getErr != nil {
			continue // skip missing
		}
		if !matches(e, opts) {
			continue
		}
		execs = append(execs, e)
	}

	sort.Slice(execs, func(i, k int) bool {
		return execs[i].StartedAt.After(execs[k].StartedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(execs) {
			return nil, nil
		}
		execs = execs[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(execs) {
		execs = execs[:opts.Limit]
	}
	return execs, nil
}

// DeleteExecution removes an execution by ID.
func (s *Store) DeleteExecution(ctx context.Context, execID id.ExecutionID) error {
	eID := execID.String()
	key := execKey(eID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("auditor/redis: delete check exists: %w", err)
	}
	if exists == 0 {
		return auditor.ErrExecutionNotFound
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, execIDsKey, eID)
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("auditor/redis: delete execution: %w", err)
	}
	return nil
}

// CountExecutions returns the number of executions with the given
// status. Empty status counts all executions.
func (s *Store) CountExecutions(ctx context.Context, status execution.Status) (int64, error) {
	ids, err := s.client.SMembers(ctx, execIDsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("auditor/redis: count smembers: %w", err)
	}

	if status == "" {
		return int64(len(ids)), nil
	}

	var count int64
	for _, eID := range ids {
		e, getErr := s.getByKey(ctx, execKey(eID))
		if getErr != nil {
			continue
		}
		if e.Status == status {
			count++
		}
	}
	return count, nil
}

// ── helpers ──

func matches(e *execution.Execution, opts execution.ListOpts) bool {
	if opts.Status != "" && e.Status != opts.Status {
		return false
	}
	if opts.DefinitionName != "" && e.DefinitionName != opts.DefinitionName {
		return false
	}
	if !opts.StoppedBefore.IsZero() {
		if e.StoppedAt == nil || !e.StoppedAt.Before(opts.StoppedBefore) {
			return false
		}
	}
	return true
}

func execToMap(e *execution.Execution) map[string]interface{} {
	m := map[string]interface{}{
		"id":            e.ID.String(),
		"definition":    e.DefinitionName,
		"status":        string(e.Status),
		"input":         string(e.Input),
		"output":        string(e.Output),
		"error":         e.Error,
		"cause":         e.Cause,
		"current_state": e.CurrentState,
		"started_at":    e.StartedAt.Format(time.RFC3339Nano),
	}
	if e.StoppedAt != nil {
		m["stopped_at"] = e.StoppedAt.Format(time.RFC3339Nano)
	}
	return m
}

func (s *Store) getByKey(ctx context.Context, key string) (*execution.Execution, error) {
	vals, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("auditor/redis: get execution: %w", err)
	}
	if len(vals) == 0 {
		return nil, auditor.ErrExecutionNotFound
	}
	return mapToExec(vals)
}

func mapToExec(m map[string]string) (*execution.Execution, error) {
	eID, err := id.ParseExecutionID(m["id"])
	if err != nil {
		return nil, fmt.Errorf("auditor/redis: parse execution id: %w", err)
	}

	startedAt, _ := time.Parse(time.RFC3339Nano, m["started_at"]) //nolint:errcheck // best-effort parse from trusted Redis data

	e := &execution.Execution{
		ID:             eID,
		DefinitionName: m["definition"],
		Status:         execution.Status(m["status"]),
		Error:          m["error"],
		Cause:          m["cause"],
		CurrentState:   m["current_state"],
		StartedAt:      startedAt,
	}
	if m["input"] != "" {
		e.Input = []byte(m["input"])
	}
	if m["output"] != "" {
		e.Output = []byte(m["output"])
	}
	if v, ok := m["stopped_at"]; ok && v != "" {
		stoppedAt, parseErr := time.Parse(time.RFC3339Nano, v)
		if parseErr == nil {
			e.StoppedAt = &stoppedAt
		}
	}
	return e, nil
}
