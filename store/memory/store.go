// Package memory provides a fully in-memory execution store. Safe for
// concurrent access. Intended for unit testing and development.
package memory

import (
	"context"
	"sort"
	"sync"

	auditor "github.com/awsdataarchitect/ai-compliance-auditor"
	"github.com/awsdataarchitect/ai-compliance-auditor/execution"
	"github.com/awsdataarchitect/ai-compliance-auditor/id"
)

var _ execution.Store = (*Store)(nil)

// Store is an in-memory implementation of execution.Store.
type Store struct {
	mu    sync.RWMutex
	execs map[string]*execution.Execution
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		execs: make(map[string]*execution.Execution),
	}
}

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// CreateExecution persists a new execution record.
func (m *Store) CreateExecution(_ context.Context, e *execution.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := e.ID.String()
	if _, exists := m.execs[key]; exists {
		return auditor.ErrExecutionExists
	}
	cp := *e
	m.execs[key] = &cp
	return nil
}

// GetExecution retrieves an execution by ID.
func (m *Store) GetExecution(_ context.Context, execID id.ExecutionID) (*execution.Execution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.execs[execID.String()]
	if !ok {
		return nil, auditor.ErrExecutionNotFound
	}
	cp := *e
	return &cp, nil
}

// UpdateExecution persists changes to an existing execution.
func (m *Store) UpdateExecution(_ context.Context, e *execution.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := e.ID.String()
	if _, ok := m.execs[key]; !ok {
		return auditor.ErrExecutionNotFound
	}
	cp := *e
	m.execs[key] = &cp
	return nil
}

// ListExecutions returns executions matching the given options,
// ordered by start time descending.
func (m *Store) ListExecutions(_ context.Context, opts execution.ListOpts) ([]*execution.Execution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*execution.Execution, 0, len(m.execs))
	for _, e := range m.execs {
		if !matches(e, opts) {
			continue
		}
		cp := *e
		matched = append(matched, &cp)
	}

	sort.Slice(matched, func(i, k int) bool {
		return matched[i].StartedAt.After(matched[k].StartedAt)
	})

	return paginate(matched, opts.Offset, opts.Limit), nil
}

// DeleteExecution removes an execution by ID.
func (m *Store) DeleteExecution(_ context.Context, execID id.ExecutionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := execID.String()
	if _, ok := m.execs[key]; !ok {
		return auditor.ErrExecutionNotFound
	}
	delete(m.execs, key)
	return nil
}

// CountExecutions returns the number of executions with the given
// status. Empty status counts all executions.
func (m *Store) CountExecutions(_ context.Context, status execution.Status) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, e := range m.execs {
		if status == "" || e.Status == status {
			n++
		}
	}
	return n, nil
}

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

func paginate(execs []*execution.Execution, offset, limit int) []*execution.Execution {
	if offset > 0 {
		if offset >= len(execs) {
			return nil
		}
		execs = execs[offset:]
	}
	if limit > 0 && len(execs) > limit {
		execs = execs[:limit]
	}
	return execs
}
