package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/awsdataarchitect/ai-compliance-auditor/document"
	"github.com/awsdataarchitect/ai-compliance-auditor/task"
)

// RateLimit returns middleware that throttles task invocations through
// the given limiter. The call blocks until a token is available; if
// the context ends first, the failure carries the Timeout error class
// so retry rules can match it. One limiter is shared across all tasks
// behind the wrapped invoker, which is how a rate-limited upstream
// model endpoint is usually fronted.
func RateLimit(limiter *rate.Limiter) Middleware {
	return func(ctx context.Context, inv *Invocation, next Handler) (document.Document, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, task.NewError(task.ErrorClassTimeout, "rate limit wait for task "+inv.Task+": "+err.Error())
		}
		return next(ctx)
	}
}
