package state

import (
	"github.com/awsdataarchitect/ai-compliance-auditor/document"
)

// Op is a choice rule comparison operator. Equality applies to strings,
// numbers, and booleans; ordering operators apply to strings and
// numbers.
type Op string

// Comparison operators.
const (
	OpEquals            Op = "eq"
	OpNotEquals         Op = "neq"
	OpLessThan          Op = "lt"
	OpLessThanEquals    Op = "lte"
	OpGreaterThan       Op = "gt"
	OpGreaterThanEquals Op = "gte"
)

// ChoiceRule is one (predicate, target) pair of a Choice state.
type ChoiceRule struct {
	// Variable is the document path the predicate reads.
	Variable document.Path

	// Op compares the variable's value against Value.
	Op Op

	// Value is the literal to compare against.
	Value any

	// Next names the target state when the predicate matches.
	Next string
}

// Match evaluates the predicate against the working document. An absent
// variable, an unknown operator, or a shape mismatch between the
// variable and the comparison value is a non-match, never an error.
func (r ChoiceRule) Match(doc document.Document) bool {
	v, ok := doc.Get(r.Variable)
	if !ok {
		return false
	}

	switch r.Op {
	case OpEquals, OpNotEquals:
		eq, ok := compareEqual(v, r.Value)
		if !ok {
			return false
		}
		if r.Op == OpNotEquals {
			return !eq
		}
		return eq
	case OpLessThan, OpLessThanEquals, OpGreaterThan, OpGreaterThanEquals:
		cmp, ok := compareOrder(v, r.Value)
		if !ok {
			return false
		}
		switch r.Op {
		case OpLessThan:
			return cmp < 0
		case OpLessThanEquals:
			return cmp <= 0
		case OpGreaterThan:
			return cmp > 0
		default:
			return cmp >= 0
		}
	default:
		return false
	}
}

// compareEqual reports value equality for scalars of matching shape.
func compareEqual(a, b any) (equal, comparable bool) {
	if na, aok := asNumber(a); aok {
		nb, bok := asNumber(b)
		if !bok {
			return false, false
		}
		return na == nb, true
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return false, false
		}
		return av == bv, true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return false, false
		}
		return av == bv, true
	default:
		return false, false
	}
}

// compareOrder returns -1/0/+1 for orderable scalars of matching shape.
func compareOrder(a, b any) (cmp int, comparable bool) {
	if na, aok := asNumber(a); aok {
		nb, bok := asNumber(b)
		if !bok {
			return 0, false
		}
		switch {
		case na < nb:
			return -1, true
		case na > nb:
			return 1, true
		default:
			return 0, true
		}
	}

	av, aok := a.(string)
	bv, bok := b.(string)
	if !aok || !bok {
		return 0, false
	}
	switch {
	case av < bv:
		return -1, true
	case av > bv:
		return 1, true
	default:
		return 0, true
	}
}

// asNumber widens the numeric types JSON and YAML decoding produce.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
