// Package retry decides what happens after a state fails: re-run with
// backoff, redirect to a catch fallback, or surface the failure
// unhandled. Rules are evaluated in declaration order and the first
// matching rule wins, independent of specificity.
package retry

import (
	"time"

	"github.com/awsdataarchitect/ai-compliance-auditor/backoff"
	"github.com/awsdataarchitect/ai-compliance-auditor/state"
	"github.com/awsdataarchitect/ai-compliance-auditor/task"
)

// Action is the outcome of evaluating a failure against a state's
// retry and catch policies.
type Action int

// Evaluation outcomes.
const (
	// ActionUnhandled propagates the failure: to the enclosing parallel
	// state if any, else it terminates the execution as failed.
	ActionUnhandled Action = iota
	// ActionRetry re-runs the same state with the same input after the
	// decision's delay.
	ActionRetry
	// ActionCatch records the cause and transitions to the catch
	// rule's target as a normal transition.
	ActionCatch
)

// Decision carries the evaluation outcome and its parameters.
type Decision struct {
	Action Action

	// Delay is the backoff wait before re-running. ActionRetry only.
	Delay time.Duration

	// Rule is the matched catch rule. ActionCatch only.
	Rule state.CatchRule
}

// Evaluator applies one state's retry and catch policies across the
// repeated failures of a single state visit. Attempt counts are kept
// per retry rule, independently of other rules, and reset when the
// engine moves to a new state. Not safe for concurrent use; each state
// visit owns its own Evaluator.
type Evaluator struct {
	retries  []state.RetryRule
	catches  []state.CatchRule
	attempts []int
}

// NewEvaluator creates an evaluator for one visit to a state.
func NewEvaluator(retries []state.RetryRule, catches []state.CatchRule) *Evaluator {
	return &Evaluator{
		retries:  retries,
		catches:  catches,
		attempts: make([]int, len(retries)),
	}
}

// Decide classifies the failure and resolves it against the policies.
// The first retry rule matching the error class is the only one
// consulted: while its attempt budget lasts it schedules retries with
// geometric backoff, and once exhausted the failure falls through to
// the catch rules.
func (e *Evaluator) Decide(err error) Decision {
	class := string(task.ClassOf(err))

	for i, rule := range e.retries {
		if !rule.Matches(class) {
			continue
		}
		if e.attempts[i] >= rule.MaxAttempts {
			break
		}
		e.attempts[i]++
		strategy := backoff.NewGeometric(
			time.Duration(rule.IntervalSeconds*float64(time.Second)),
			rule.BackoffRate,
			0,
		)
		return Decision{Action: ActionRetry, Delay: strategy.Delay(e.attempts[i])}
	}

	for _, rule := range e.catches {
		if rule.Matches(class) {
			return Decision{Action: ActionCatch, Rule: rule}
		}
	}

	return Decision{Action: ActionUnhandled}
}

// Attempts returns how many retries rule i has consumed. Exposed for
// observability hooks.
func (e *Evaluator) Attempts(i int) int {
	if i < 0 || i >= len(e.attempts) {
		return 0
	}
	return e.attempts[i]
}

// Record builds the document value a catch rule writes at its result
// path: the error class and the human-readable cause.
func Record(err error) map[string]any {
	return map[string]any{
		"error": string(task.ClassOf(err)),
		"cause": task.CauseOf(err),
	}
}
