package engine

import (
	"context"
	"time"

	"github.com/awsdataarchitect/ai-compliance-auditor/execution"
)

// Emitter receives execution lifecycle events. Implementations must be
// safe for concurrent use; the engine calls them from branch goroutines
// as well as the main step loop. The observability package provides an
// OpenTelemetry-backed implementation.
type Emitter interface {
	ExecutionStarted(ctx context.Context, exec *execution.Execution)
	ExecutionSucceeded(ctx context.Context, exec *execution.Execution, elapsed time.Duration)
	ExecutionFailed(ctx context.Context, exec *execution.Execution, err error)
	ExecutionTimedOut(ctx context.Context, exec *execution.Execution)

	StateEntered(ctx context.Context, exec *execution.Execution, stateName string)
	StateCompleted(ctx context.Context, exec *execution.Execution, stateName string, elapsed time.Duration)
	StateFailed(ctx context.Context, exec *execution.Execution, stateName string, err error)

	// TaskRetried fires after a retry decision, before the backoff wait.
	TaskRetried(ctx context.Context, exec *execution.Execution, stateName string, attempt int, delay time.Duration)

	// CatchTaken fires when a failure is redirected to a fallback state.
	CatchTaken(ctx context.Context, exec *execution.Execution, stateName, target string)
}

// NopEmitter discards all events. It is the default when no emitter is
// configured.
type NopEmitter struct{}

var _ Emitter = NopEmitter{}

func (NopEmitter) ExecutionStarted(context.Context, *execution.Execution)                 {}
func (NopEmitter) ExecutionSucceeded(context.Context, *execution.Execution, time.Duration) {}
func (NopEmitter) ExecutionFailed(context.Context, *execution.Execution, error)           {}
func (NopEmitter) ExecutionTimedOut(context.Context, *execution.Execution)                {}
func (NopEmitter) StateEntered(context.Context, *execution.Execution, string)             {}
func (NopEmitter) StateCompleted(context.Context, *execution.Execution, string, time.Duration) {
}
func (NopEmitter) StateFailed(context.Context, *execution.Execution, string, error) {}
func (NopEmitter) TaskRetried(context.Context, *execution.Execution, string, int, time.Duration) {
}
func (NopEmitter) CatchTaken(context.Context, *execution.Execution, string, string) {}
