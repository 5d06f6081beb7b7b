package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/awsdataarchitect/ai-compliance-auditor/document"
)

// Logging returns middleware that logs task start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, inv *Invocation, next Handler) (document.Document, error) {
		logger.Debug("task started",
			slog.String("task", inv.Task),
		)

		start := time.Now()
		out, err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("task failed",
				slog.String("task", inv.Task),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("task completed",
				slog.String("task", inv.Task),
				slog.Duration("elapsed", elapsed),
			)
		}

		return out, err
	}
}
