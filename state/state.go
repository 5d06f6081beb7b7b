// Package state defines the workflow definition graph: tagged state
// variants (Pass, Task, Parallel, Choice), transition markers, retry and
// catch policies, and the payload template expressions that feed task
// invocations. Definitions are immutable once validated and are shared
// read-only across concurrent executions.
package state

import (
	"github.com/awsdataarchitect/ai-compliance-auditor/document"
)

// Type discriminates the state variants.
type Type string

// State type constants.
const (
	TypePass     Type = "Pass"
	TypeTask     Type = "Task"
	TypeParallel Type = "Parallel"
	TypeChoice   Type = "Choice"
)

// Definition is a directed graph of named states with a single start
// state. Parallel branches are full nested Definitions.
type Definition struct {
	// Name is the unique identifier for this workflow type. Branch
	// definitions may leave it empty.
	Name string

	// Comment is free-form documentation carried from the source file.
	Comment string

	// StartAt names the first state to execute.
	StartAt string

	// TimeoutSeconds bounds total execution wall-clock time. Zero means
	// the engine default applies.
	TimeoutSeconds int

	// States maps state names to their definitions.
	States map[string]*State
}

// State is one node of the definition graph. Exactly one variant's
// fields are populated, selected by Type.
type State struct {
	Type    Type
	Comment string

	// Next names the state to transition to on success. Empty for
	// terminal states and for Choice states (which route via rules).
	Next string

	// End marks a terminal state.
	End bool

	// ResultPath is where the state's output merges into the working
	// document. Nil means the output replaces the whole document.
	ResultPath *document.Path

	// Pass: literal result document transform.
	Result map[string]any

	// Task: external capability name and payload template.
	Task       string
	Parameters []Field

	// Parallel: independent branch definitions, fan-in in declaration
	// order.
	Branches []*Definition

	// Choice: first-match rules plus the mandatory default target.
	Choices []ChoiceRule
	Default string

	// Failure policies, evaluated in declaration order.
	Retry []RetryRule
	Catch []CatchRule
}

// Terminal reports whether the state ends its definition on success.
func (s *State) Terminal() bool { return s.End }

// Field is one entry of a Task payload template: a target key and the
// expression producing its value.
type Field struct {
	Key  string
	Expr Expr
}

// RetryRule retries a failed state for matching error classes with
// geometric backoff: the n-th retry waits IntervalSeconds *
// BackoffRate^(n-1). MaxAttempts counts retries, so a rule with
// MaxAttempts=3 allows four invocations in total.
type RetryRule struct {
	// ErrorEquals lists the error classes this rule matches. The
	// wildcard "*" matches every class.
	ErrorEquals []string

	// IntervalSeconds is the wait before the first retry.
	IntervalSeconds float64

	// MaxAttempts is the maximum number of retries.
	MaxAttempts int

	// BackoffRate multiplies the interval after each retry.
	BackoffRate float64
}

// Matches reports whether the rule covers the given error class.
func (r RetryRule) Matches(class string) bool {
	return matchesClass(r.ErrorEquals, class)
}

// CatchRule redirects a failed state to a fallback state for matching
// error classes, recording the cause in the document.
type CatchRule struct {
	// ErrorEquals lists the error classes this rule matches. The
	// wildcard "*" matches every class.
	ErrorEquals []string

	// Next names the fallback state.
	Next string

	// ResultPath is where the error record {error, cause} merges into
	// the document. Nil means the record replaces the whole document.
	ResultPath *document.Path
}

// Matches reports whether the rule covers the given error class.
func (c CatchRule) Matches(class string) bool {
	return matchesClass(c.ErrorEquals, class)
}

// Wildcard is the error class that matches every failure.
const Wildcard = "*"

func matchesClass(classes []string, class string) bool {
	for _, c := range classes {
		if c == Wildcard || c == class {
			return true
		}
	}
	return false
}
