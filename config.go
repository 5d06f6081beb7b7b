package auditor

import "time"

// Config holds configuration for the execution engine.
type Config struct {
	// ExecutionTimeout caps the total wall-clock time of one execution.
	// A definition's timeout_seconds, when set, takes precedence.
	ExecutionTimeout time.Duration

	// MaxBranchConcurrency limits how many Parallel branches run at
	// once. Zero means all declared branches start immediately.
	MaxBranchConcurrency int

	// TaskTimeout is the default deadline for a single task invocation.
	// Zero means no per-invocation deadline.
	TaskTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ExecutionTimeout:     5 * time.Minute,
		MaxBranchConcurrency: 0,
		TaskTimeout:          1 * time.Minute,
	}
}
