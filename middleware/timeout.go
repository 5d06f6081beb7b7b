package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/awsdataarchitect/ai-compliance-auditor/document"
	"github.com/awsdataarchitect/ai-compliance-auditor/task"
)

// Timeout returns middleware that enforces a per-invocation deadline.
// When the deadline is exceeded the handler's context is cancelled and
// the failure carries the Timeout error class, so retry rules can
// match it. A non-positive duration disables the deadline.
func Timeout(d time.Duration) Middleware {
	return func(ctx context.Context, inv *Invocation, next Handler) (document.Document, error) {
		if d <= 0 {
			return next(ctx)
		}

		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		out, err := next(ctx)
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, task.NewError(task.ErrorClassTimeout, "task "+inv.Task+" exceeded "+d.String())
		}
		return out, err
	}
}
