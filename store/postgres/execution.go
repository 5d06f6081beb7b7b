package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	auditor "github.com/awsdataarchitect/ai-compliance-auditor"
	"github.com/awsdataarchitect/ai-compliance-auditor/execution"
	"github.com/awsdataarchitect/ai-compliance-auditor/id"
)

const execColumns = `id, definition_name, status, input, output, error, cause, current_state, started_at, stopped_at`

// CreateExecution persists a new execution record.
func (s *Store) CreateExecution(ctx context.Context, e *execution.Execution) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO auditor_executions (
			id, definition_name, status, input, output, error, cause,
			current_state, started_at, stopped_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID.String(), e.DefinitionName, string(e.Status),
		e.Input, e.Output, e.Error, e.Cause,
		e.CurrentState, e.StartedAt, e.StoppedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return auditor.ErrExecutionExists
		}
		return fmt.Errorf("auditor/postgres: create execution: %w", err)
	}
	return nil
}

// GetExecution retrieves an execution by ID.
func (s *Store) GetExecution(ctx context.Context, execID id.ExecutionID) (*execution.Execution, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+execColumns+` FROM auditor_executions WHERE id = $1`,
		execID.String(),
	)
	e, err := scanExecution(row)
	if err != nil {
		if isNoRows(err) {
			return nil, auditor.ErrExecutionNotFound
		}
		return nil, fmt.Errorf("auditor/postgres: get execution: %w", err)
	}
	return e, nil
}

// UpdateExecution persists changes to an existing execution.
func (s *Store) UpdateExecution(ctx context.Context, e *execution.Execution) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE auditor_executions SET
			definition_name = $2, status = $3, input = $4, output = $5,
			error = $6, cause = $7, current_state = $8,
			started_at = $9, stopped_at = $10
		WHERE id = $1`,
		e.ID.String(), e.DefinitionName, string(e.Status),
		e.Input, e.Output, e.Error, e.Cause,
		e.CurrentState, e.StartedAt, e.StoppedAt,
	)
	if err != nil {
		return fmt.Errorf("auditor/postgres: update execution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auditor.ErrExecutionNotFound
	}
	return nil
}

// ListExecutions returns executions matching the given options,
// ordered by start time descending.
func (s *Store) ListExecutions(ctx context.Context, opts execution.ListOpts) ([]*execution.Execution, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if opts.Status != "" {
		conds = append(conds, "status = "+arg(string(opts.Status)))
	}
	if opts.DefinitionName != "" {
		conds = append(conds, "definition_name = "+arg(opts.DefinitionName))
	}
	if !opts.StoppedBefore.IsZero() {
		conds = append(conds, "stopped_at IS NOT NULL AND stopped_at < "+arg(opts.StoppedBefore))
	}

	query := `SELECT ` + execColumns + ` FROM auditor_executions`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY started_at DESC"
	if opts.Limit > 0 {
		query += " LIMIT " + arg(opts.Limit)
	}
	if opts.Offset > 0 {
		query += " OFFSET " + arg(opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("auditor/postgres: list executions: %w", err)
	}
	defer rows.Close()

	return collectExecutions(rows)
}

// DeleteExecution removes an execution by ID.
func (s *Store) DeleteExecution(ctx context.Context, execID id.ExecutionID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM auditor_executions WHERE id = $1`,
		execID.String(),
	)
	if err != nil {
		return fmt.Errorf("auditor/postgres: delete execution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auditor.ErrExecutionNotFound
	}
	return nil
}

// CountExecutions returns the number of executions with the given
// status. Empty status counts all executions.
func (s *Store) CountExecutions(ctx context.Context, status execution.Status) (int64, error) {
	var (
		count int64
		err   error
	)
	if status == "" {
		err = s.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM auditor_executions`,
		).Scan(&count)
	} else {
		err = s.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM auditor_executions WHERE status = $1`,
			string(status),
		).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("auditor/postgres: count executions: %w", err)
	}
	return count, nil
}

// ── helpers ──

// scanExecution scans one row into an Execution.
func scanExecution(row pgx.Row) (*execution.Execution, error) {
	var (
		e         execution.Execution
		rawID     string
		status    string
		startedAt time.Time
		stoppedAt *time.Time
	)
	err := row.Scan(
		&rawID, &e.DefinitionName, &status, &e.Input, &e.Output,
		&e.Error, &e.Cause, &e.CurrentState, &startedAt, &stoppedAt,
	)
	if err != nil {
		return nil, err
	}

	execID, err := id.ParseExecutionID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse execution id: %w", err)
	}
	e.ID = execID
	e.Status = execution.Status(status)
	e.StartedAt = startedAt
	e.StoppedAt = stoppedAt
	return &e, nil
}

// collectExecutions collects all executions from query rows.
func collectExecutions(rows pgx.Rows) ([]*execution.Execution, error) {
	var execs []*execution.Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("auditor/postgres: scan execution: %w", err)
		}
		execs = append(execs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("auditor/postgres: iterate executions: %w", err)
	}
	return execs, nil
}
