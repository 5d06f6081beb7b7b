package execution

import (
	"context"
	"time"

	"github.com/awsdataarchitect/ai-compliance-auditor/id"
)

// ListOpts controls pagination and filtering for execution list queries.
type ListOpts struct {
	// Status filters by status. Empty means all statuses.
	Status Status
	// DefinitionName filters by workflow definition. Empty means all.
	DefinitionName string
	// StoppedBefore keeps only terminal executions that stopped before
	// the given instant. Zero means no cutoff.
	StoppedBefore time.Time
	// Limit is the maximum number of executions to return. Zero means
	// no limit.
	Limit int
	// Offset is the number of executions to skip.
	Offset int
}

// Store defines the persistence contract for executions.
type Store interface {
	// CreateExecution persists a new execution record.
	CreateExecution(ctx context.Context, e *Execution) error

	// GetExecution retrieves an execution by ID.
	GetExecution(ctx context.Context, execID id.ExecutionID) (*Execution, error)

	// UpdateExecution persists changes to an existing execution.
	UpdateExecution(ctx context.Context, e *Execution) error

	// ListExecutions returns executions matching the given options,
	// ordered by start time descending.
	ListExecutions(ctx context.Context, opts ListOpts) ([]*Execution, error)

	// DeleteExecution removes an execution by ID.
	DeleteExecution(ctx context.Context, execID id.ExecutionID) error

	// CountExecutions returns the number of executions with the given
	// status. Empty status counts all executions.
	CountExecutions(ctx context.Context, status Status) (int64, error)
}
