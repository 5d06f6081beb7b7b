package middleware

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/awsdataarchitect/ai-compliance-auditor/document"
	"github.com/awsdataarchitect/ai-compliance-auditor/task"
)

// Recover returns middleware that recovers from panics in the handler
// chain. Panics are converted to task failures and logged with a stack
// trace, so one crashing handler cannot take the interpreter down.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, inv *Invocation, next Handler) (out document.Document, retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("task handler panicked",
					slog.String("task", inv.Task),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				out = nil
				retErr = task.Failedf("panic in task %s: %v", inv.Task, r)
			}
		}()
		return next(ctx)
	}
}
