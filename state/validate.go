package state

import (
	"fmt"

	auditor "github.com/awsdataarchitect/ai-compliance-auditor"
)

// DefinitionError reports a malformed definition graph. It is fatal at
// load time and never raised at run time.
type DefinitionError struct {
	Definition string
	State      string
	Reason     string
}

// Error implements the error interface.
func (e *DefinitionError) Error() string {
	name := e.Definition
	if name == "" {
		name = "(branch)"
	}
	if e.State == "" {
		return fmt.Sprintf("state: definition %q: %s", name, e.Reason)
	}
	return fmt.Sprintf("state: definition %q state %q: %s", name, e.State, e.Reason)
}

// Unwrap links DefinitionError to the package-level sentinel so callers
// can errors.Is against auditor.ErrInvalidDefinition.
func (e *DefinitionError) Unwrap() error { return auditor.ErrInvalidDefinition }

// Validate checks the structural invariants of the definition graph:
// a reachable start state, exactly one outgoing edge per non-terminal
// state, dangling transition targets, and a reachable terminal state.
// Branch definitions validate recursively.
func (d *Definition) Validate() error {
	if d.StartAt == "" {
		return &DefinitionError{Definition: d.Name, Reason: "missing start_at"}
	}
	if len(d.States) == 0 {
		return &DefinitionError{Definition: d.Name, Reason: "no states defined"}
	}
	if _, ok := d.States[d.StartAt]; !ok {
		return &DefinitionError{Definition: d.Name, Reason: fmt.Sprintf("start_at %q is not a state", d.StartAt)}
	}

	for name, st := range d.States {
		if err := d.validateState(name, st); err != nil {
			return err
		}
	}

	return d.validateReachability()
}

func (d *Definition) validateState(name string, st *State) error {
	fail := func(reason string) error {
		return &DefinitionError{Definition: d.Name, State: name, Reason: reason}
	}

	switch st.Type {
	case TypePass:
		// No variant-specific fields required.
	case TypeTask:
		if st.Task == "" {
			return fail("task state missing task name")
		}
	case TypeParallel:
		if len(st.Branches) == 0 {
			return fail("parallel state has no branches")
		}
		for i, br := range st.Branches {
			if err := br.Validate(); err != nil {
				return fail(fmt.Sprintf("branch %d: %v", i, err))
			}
		}
	case TypeChoice:
		if st.Next != "" || st.End {
			return fail("choice state routes via rules, not next/end")
		}
		if st.Default == "" {
			return fail("choice state missing default target")
		}
		if _, ok := d.States[st.Default]; !ok {
			return fail(fmt.Sprintf("default target %q is not a state", st.Default))
		}
		for i, rule := range st.Choices {
			if rule.Next == "" {
				return fail(fmt.Sprintf("choice rule %d missing next", i))
			}
			if _, ok := d.States[rule.Next]; !ok {
				return fail(fmt.Sprintf("choice rule %d target %q is not a state", i, rule.Next))
			}
		}
	default:
		return fail(fmt.Sprintf("unknown state type %q", st.Type))
	}

	if st.Type != TypeChoice {
		if st.End && st.Next != "" {
			return fail("terminal state has an outgoing edge")
		}
		if !st.End && st.Next == "" {
			return fail("non-terminal state missing next")
		}
		if st.Next != "" {
			if _, ok := d.States[st.Next]; !ok {
				return fail(fmt.Sprintf("next target %q is not a state", st.Next))
			}
		}
	}

	for i, rule := range st.Retry {
		if len(rule.ErrorEquals) == 0 {
			return fail(fmt.Sprintf("retry rule %d has no error classes", i))
		}
		if rule.IntervalSeconds <= 0 {
			return fail(fmt.Sprintf("retry rule %d interval must be positive", i))
		}
		if rule.MaxAttempts < 0 {
			return fail(fmt.Sprintf("retry rule %d max_attempts must not be negative", i))
		}
		if rule.BackoffRate < 1 {
			return fail(fmt.Sprintf("retry rule %d backoff_rate must be at least 1", i))
		}
	}

	for i, rule := range st.Catch {
		if len(rule.ErrorEquals) == 0 {
			return fail(fmt.Sprintf("catch rule %d has no error classes", i))
		}
		if rule.Next == "" {
			return fail(fmt.Sprintf("catch rule %d missing next", i))
		}
		if _, ok := d.States[rule.Next]; !ok {
			return fail(fmt.Sprintf("catch rule %d target %q is not a state", i, rule.Next))
		}
	}

	if len(st.Retry) > 0 && st.Type != TypeTask && st.Type != TypeParallel {
		return fail("retry rules only apply to task and parallel states")
	}
	if len(st.Catch) > 0 && st.Type != TypeTask && st.Type != TypeParallel {
		return fail("catch rules only apply to task and parallel states")
	}

	return nil
}

// validateReachability walks the graph from StartAt, verifying every
// state is reachable and at least one reachable state terminates.
func (d *Definition) validateReachability() error {
	visited := make(map[string]bool, len(d.States))
	hasTerminal := false

	var walk func(name string)
	walk = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true

		st := d.States[name]
		if st.End {
			hasTerminal = true
		}
		if st.Next != "" {
			walk(st.Next)
		}
		for _, rule := range st.Choices {
			walk(rule.Next)
		}
		if st.Default != "" {
			walk(st.Default)
		}
		for _, rule := range st.Catch {
			walk(rule.Next)
		}
	}
	walk(d.StartAt)

	for name := range d.States {
		if !visited[name] {
			return &DefinitionError{Definition: d.Name, State: name, Reason: "state is unreachable"}
		}
	}
	if !hasTerminal {
		return &DefinitionError{Definition: d.Name, Reason: "no reachable terminal state"}
	}

	return nil
}
