package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	auditor "github.com/awsdataarchitect/ai-compliance-auditor"
	"github.com/awsdataarchitect/ai-compliance-auditor/document"
	"github.com/awsdataarchitect/ai-compliance-auditor/execution"
	"github.com/awsdataarchitect/ai-compliance-auditor/id"
	"github.com/awsdataarchitect/ai-compliance-auditor/state"
	"github.com/awsdataarchitect/ai-compliance-auditor/task"
)

// Engine holds the registered workflow definitions and the
// collaborators every execution needs: the execution store, the task
// invoker, the event emitter, and the logger.
type Engine struct {
	mu      sync.RWMutex
	defs    map[string]*state.Definition
	store   execution.Store
	invoker task.Invoker
	emitter Emitter
	logger  *slog.Logger
	cfg     auditor.Config
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore sets the execution store. Required.
func WithStore(s execution.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithInvoker sets the task invoker. If not set, an empty task
// registry is used and every Task state fails as not registered.
func WithInvoker(inv task.Invoker) Option {
	return func(e *Engine) { e.invoker = inv }
}

// WithEmitter sets the lifecycle event emitter.
func WithEmitter(em Emitter) Option {
	return func(e *Engine) { e.emitter = em }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithConfig overrides the engine configuration.
func WithConfig(cfg auditor.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// New builds an Engine from the given options.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		defs: make(map[string]*state.Definition),
		cfg:  auditor.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.store == nil {
		return nil, auditor.ErrNoStore
	}
	if e.invoker == nil {
		e.invoker = task.NewRegistry()
	}
	if e.emitter == nil {
		e.emitter = NopEmitter{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}

	return e, nil
}

// Register validates and registers a workflow definition. Registering
// a name twice returns ErrDefinitionExists.
func (e *Engine) Register(def *state.Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.defs[def.Name]; ok {
		return fmt.Errorf("%w: %q", auditor.ErrDefinitionExists, def.Name)
	}
	e.defs[def.Name] = def

	e.logger.Info("workflow definition registered",
		slog.String("definition", def.Name),
		slog.Int("states", len(def.States)),
	)
	return nil
}

// Definition returns a registered definition by name.
func (e *Engine) Definition(name string) (*state.Definition, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	def, ok := e.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", auditor.ErrDefinitionNotFound, name)
	}
	return def, nil
}

// DefinitionNames returns the names of all registered definitions.
func (e *Engine) DefinitionNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.defs))
	for name := range e.defs {
		names = append(names, name)
	}
	return names
}

// StartExecution runs the named workflow synchronously and returns the
// terminal execution record. The returned error reflects store or
// lookup failures only; a workflow that ran and failed returns a nil
// error with Status failed and the error class on the record.
func (e *Engine) StartExecution(ctx context.Context, defName string, input document.Document) (*execution.Execution, error) {
	def, exec, err := e.createExecution(ctx, defName, input, execution.StatusRunning)
	if err != nil {
		return nil, err
	}

	e.emitter.ExecutionStarted(ctx, exec)
	e.run(ctx, exec, def, input)
	return exec, nil
}

// StartExecutionAsync persists a pending execution and runs it in a
// background goroutine. The returned record reflects the pending
// state; poll DescribeExecution for progress.
func (e *Engine) StartExecutionAsync(ctx context.Context, defName string, input document.Document) (*execution.Execution, error) {
	def, exec, err := e.createExecution(ctx, defName, input, execution.StatusPending)
	if err != nil {
		return nil, err
	}

	// The goroutine owns the record; the caller gets a snapshot so
	// reading it never races with the run's status writes.
	snapshot := *exec

	go func() {
		// The caller's context may end as soon as this returns; the
		// run is bounded by the workflow's own timeout instead.
		bg := context.WithoutCancel(ctx)

		exec.Status = execution.StatusRunning
		if updateErr := e.store.UpdateExecution(bg, exec); updateErr != nil {
			e.logger.Error("failed to mark execution running",
				slog.String("execution_id", exec.ID.String()),
				slog.String("error", updateErr.Error()),
			)
		}
		e.emitter.ExecutionStarted(bg, exec)
		e.run(bg, exec, def, input)
	}()

	return &snapshot, nil
}

// DescribeExecution retrieves an execution record by ID.
func (e *Engine) DescribeExecution(ctx context.Context, execID id.ExecutionID) (*execution.Execution, error) {
	return e.store.GetExecution(ctx, execID)
}

// ListExecutions lists execution records matching the given options.
func (e *Engine) ListExecutions(ctx context.Context, opts execution.ListOpts) ([]*execution.Execution, error) {
	return e.store.ListExecutions(ctx, opts)
}

func (e *Engine) createExecution(ctx context.Context, defName string, input document.Document, status execution.Status) (*state.Definition, *execution.Execution, error) {
	def, err := e.Definition(defName)
	if err != nil {
		return nil, nil, err
	}

	data, err := input.JSON()
	if err != nil {
		return nil, nil, fmt.Errorf("marshal input for workflow %q: %w", defName, err)
	}

	exec := &execution.Execution{
		ID:             id.NewExecutionID(),
		DefinitionName: defName,
		Status:         status,
		Input:          data,
		CurrentState:   def.StartAt,
		StartedAt:      time.Now().UTC(),
	}
	if err := e.store.CreateExecution(ctx, exec); err != nil {
		return nil, nil, fmt.Errorf("create execution for workflow %q: %w", defName, err)
	}
	return def, exec, nil
}
