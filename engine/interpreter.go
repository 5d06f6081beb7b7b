package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	auditor "github.com/awsdataarchitect/ai-compliance-auditor"
	"github.com/awsdataarchitect/ai-compliance-auditor/document"
	"github.com/awsdataarchitect/ai-compliance-auditor/execution"
	"github.com/awsdataarchitect/ai-compliance-auditor/retry"
	"github.com/awsdataarchitect/ai-compliance-auditor/state"
	"github.com/awsdataarchitect/ai-compliance-auditor/task"
)

// interp carries the per-execution interpreter state: the execution
// record being driven and the read-only context object exposed to
// "$$." references.
type interp struct {
	eng    *Engine
	exec   *execution.Execution
	ctxDoc document.Document
}

// run drives one execution to a terminal status and persists the
// outcome. It never returns an error: workflow failures land on the
// execution record.
func (e *Engine) run(ctx context.Context, exec *execution.Execution, def *state.Definition, input document.Document) {
	timeout := e.cfg.ExecutionTimeout
	if def.TimeoutSeconds > 0 {
		timeout = time.Duration(def.TimeoutSeconds) * time.Second
	}
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	in := &interp{
		eng:  e,
		exec: exec,
		ctxDoc: document.Document{
			"execution": map[string]any{
				"id":         exec.ID.String(),
				"started_at": exec.StartedAt.Format(time.RFC3339Nano),
			},
			"definition": map[string]any{
				"name": def.Name,
			},
		},
	}

	start := time.Now()
	out, err := in.runDefinition(runCtx, def, input, true)
	elapsed := time.Since(start)

	now := time.Now().UTC()
	exec.StoppedAt = &now

	switch {
	case err == nil:
		data, marshalErr := out.JSON()
		if marshalErr != nil {
			exec.Status = execution.StatusFailed
			exec.Error = string(task.ErrorClassTaskFailed)
			exec.Cause = fmt.Sprintf("marshal output: %s", marshalErr)
			break
		}
		exec.Status = execution.StatusSucceeded
		exec.Output = data
	case runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil:
		exec.Status = execution.StatusTimedOut
		exec.Error = string(task.ErrorClassTimeout)
		exec.Cause = fmt.Sprintf("%s: after %s", auditor.ErrExecutionTimeout, timeout)
	default:
		exec.Status = execution.StatusFailed
		exec.Error = string(task.ClassOf(err))
		exec.Cause = task.CauseOf(err)
	}

	// Persist the terminal record even when the run context is done.
	persistCtx := context.WithoutCancel(ctx)
	if updateErr := e.store.UpdateExecution(persistCtx, exec); updateErr != nil {
		e.logger.Error("failed to persist terminal execution",
			slog.String("execution_id", exec.ID.String()),
			slog.String("status", string(exec.Status)),
			slog.String("error", updateErr.Error()),
		)
	}

	switch exec.Status {
	case execution.StatusSucceeded:
		e.emitter.ExecutionSucceeded(persistCtx, exec, elapsed)
		e.logger.Info("execution succeeded",
			slog.String("execution_id", exec.ID.String()),
			slog.String("definition", exec.DefinitionName),
			slog.Duration("elapsed", elapsed),
		)
	case execution.StatusTimedOut:
		e.emitter.ExecutionTimedOut(persistCtx, exec)
		e.logger.Warn("execution timed out",
			slog.String("execution_id", exec.ID.String()),
			slog.String("definition", exec.DefinitionName),
			slog.Duration("timeout", timeout),
		)
	default:
		e.emitter.ExecutionFailed(persistCtx, exec, err)
		e.logger.Warn("execution failed",
			slog.String("execution_id", exec.ID.String()),
			slog.String("definition", exec.DefinitionName),
			slog.String("error_class", exec.Error),
			slog.String("cause", exec.Cause),
		)
	}
}

// runDefinition steps through one definition graph from StartAt to a
// terminal state. Parallel branches recurse here with track=false so
// only the top-level graph checkpoints CurrentState.
func (in *interp) runDefinition(ctx context.Context, def *state.Definition, doc document.Document, track bool) (document.Document, error) {
	current := def.StartAt
	for {
		st, ok := def.States[current]
		if !ok {
			return nil, fmt.Errorf("%w: %q", auditor.ErrStateNotFound, current)
		}

		in.enterState(ctx, current, track)

		out, next, end, err := in.step(ctx, current, st, doc)
		if err != nil {
			return nil, err
		}
		doc = out
		if end {
			return doc, nil
		}
		current = next
	}
}

func (in *interp) enterState(ctx context.Context, name string, track bool) {
	in.eng.emitter.StateEntered(ctx, in.exec, name)
	if !track {
		return
	}
	in.exec.CurrentState = name
	if err := in.eng.store.UpdateExecution(ctx, in.exec); err != nil {
		in.eng.logger.Warn("failed to checkpoint current state",
			slog.String("execution_id", in.exec.ID.String()),
			slog.String("state", name),
			slog.String("error", err.Error()),
		)
	}
}

// step executes one state to completion, applying its retry and catch
// policies across repeated failures. It returns the updated working
// document and where to go next.
func (in *interp) step(ctx context.Context, name string, st *state.State, doc document.Document) (document.Document, string, bool, error) {
	// Choice states route without producing output and carry no
	// failure policies.
	if st.Type == state.TypeChoice {
		next := st.Default
		for _, rule := range st.Choices {
			if rule.Match(doc) {
				next = rule.Next
				break
			}
		}
		return doc, next, false, nil
	}

	ev := retry.NewEvaluator(st.Retry, st.Catch)
	attempt := 0

	for {
		start := time.Now()
		result, err := in.eval(ctx, st, doc)
		if err == nil {
			out, applyErr := applyResult(doc, st.ResultPath, result)
			if applyErr != nil {
				// A result merge failure is deterministic; re-invoking
				// the state cannot change the outcome, so it bypasses
				// the retry and catch policies.
				in.eng.emitter.StateFailed(ctx, in.exec, name, applyErr)
				return nil, "", false, fmt.Errorf("state %q: merge result: %w", name, applyErr)
			}
			in.eng.emitter.StateCompleted(ctx, in.exec, name, time.Since(start))
			return out, st.Next, st.End, nil
		}

		// The execution deadline is not a task failure; abort without
		// consulting the policies.
		if ctx.Err() != nil {
			return nil, "", false, ctx.Err()
		}

		switch d := ev.Decide(err); d.Action {
		case retry.ActionRetry:
			attempt++
			in.eng.emitter.TaskRetried(ctx, in.exec, name, attempt, d.Delay)
			in.eng.logger.Debug("retrying state",
				slog.String("execution_id", in.exec.ID.String()),
				slog.String("state", name),
				slog.Int("attempt", attempt),
				slog.Duration("delay", d.Delay),
				slog.String("error", err.Error()),
			)
			if waitErr := sleep(ctx, d.Delay); waitErr != nil {
				return nil, "", false, waitErr
			}

		case retry.ActionCatch:
			in.eng.emitter.CatchTaken(ctx, in.exec, name, d.Rule.Next)
			out, recordErr := applyResult(doc, d.Rule.ResultPath, retry.Record(err))
			if recordErr != nil {
				return nil, "", false, fmt.Errorf("state %q: record catch cause: %w", name, recordErr)
			}
			return out, d.Rule.Next, false, nil

		default:
			in.eng.emitter.StateFailed(ctx, in.exec, name, err)
			return nil, "", false, fmt.Errorf("state %q: %w", name, err)
		}
	}
}

// eval produces one state attempt's raw result value, before the
// result path merge.
func (in *interp) eval(ctx context.Context, st *state.State, doc document.Document) (any, error) {
	switch st.Type {
	case state.TypePass:
		if st.Result != nil {
			return st.Result, nil
		}
		return map[string]any(doc.Clone()), nil

	case state.TypeTask:
		payload := doc.Clone()
		if len(st.Parameters) > 0 {
			payload = state.ResolveFields(st.Parameters, doc, in.ctxDoc)
		}

		taskCtx := ctx
		if t := in.eng.cfg.TaskTimeout; t > 0 {
			var cancel context.CancelFunc
			taskCtx, cancel = context.WithTimeout(ctx, t)
			defer cancel()
		}

		out, err := in.eng.invoker.Invoke(taskCtx, st.Task, payload)
		if err != nil {
			return nil, err
		}
		return map[string]any(out), nil

	case state.TypeParallel:
		return in.runBranches(ctx, st.Branches, doc)

	default:
		return nil, fmt.Errorf("unsupported state type %q", st.Type)
	}
}

// runBranches fans the working document out to every branch and
// collects their outputs in declaration order. The first branch
// failure cancels the siblings.
func (in *interp) runBranches(ctx context.Context, branches []*state.Definition, doc document.Document) ([]any, error) {
	g, gctx := errgroup.WithContext(ctx)
	if limit := in.eng.cfg.MaxBranchConcurrency; limit > 0 {
		g.SetLimit(limit)
	}

	results := make([]any, len(branches))
	for i, br := range branches {
		g.Go(func() error {
			out, err := in.runDefinition(gctx, br, doc.Clone(), false)
			if err != nil {
				return fmt.Errorf("branch %d: %w", i, err)
			}
			results[i] = map[string]any(out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// applyResult merges a state's result value into the working document
// at the given path. A nil path replaces the whole document.
func applyResult(doc document.Document, p *document.Path, value any) (document.Document, error) {
	var path document.Path
	if p != nil {
		path = *p
	}
	return doc.Set(path, value)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
