package execution

import (
	"time"

	"github.com/awsdataarchitect/ai-compliance-auditor/id"
)

// Status represents the lifecycle state of an execution.
type Status string

const (
	// StatusPending means the execution is recorded but the interpreter
	// has not started it yet.
	StatusPending Status = "pending"
	// StatusRunning means the interpreter is stepping through states.
	StatusRunning Status = "running"
	// StatusSucceeded means a terminal state completed normally.
	StatusSucceeded Status = "succeeded"
	// StatusFailed means an unhandled error terminated the execution.
	StatusFailed Status = "failed"
	// StatusTimedOut means the workflow's deadline elapsed before a
	// terminal state was reached.
	StatusTimedOut Status = "timed_out"
)

// Terminal reports whether s is a final status.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusTimedOut:
		return true
	}
	return false
}

// Execution is the durable record of one workflow run.
type Execution struct {
	ID             id.ExecutionID `json:"id"`
	DefinitionName string         `json:"definition_name"`
	Status         Status         `json:"status"`
	Input          []byte         `json:"input,omitempty"`
	Output         []byte         `json:"output,omitempty"`
	Error          string         `json:"error,omitempty"`
	Cause          string         `json:"cause,omitempty"`
	CurrentState   string         `json:"current_state,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	StoppedAt      *time.Time     `json:"stopped_at,omitempty"`
}
