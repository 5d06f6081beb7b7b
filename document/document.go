// Package document implements the path-addressable working data carried
// through an execution. A Document is an ordered tree of string-keyed
// fields and arrays over JSON scalar values.
//
// Documents have value identity: Set and Merge return updated copies and
// never mutate the receiver, so concurrent branches holding separate
// copies cannot observe each other's writes.
package document

import (
	"encoding/json"
	"fmt"
)

// Document is the working data of an execution. Values are the usual
// JSON mapping: map[string]any, []any, string, float64, bool, nil.
type Document map[string]any

// New returns an empty Document.
func New() Document {
	return Document{}
}

// FromJSON decodes a JSON object into a Document. Empty input yields an
// empty Document.
func FromJSON(data []byte) (Document, error) {
	if len(data) == 0 {
		return New(), nil
	}

	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("document: decode: %w", err)
	}
	if d == nil {
		d = New()
	}
	return d, nil
}

// JSON encodes the Document as JSON.
func (d Document) JSON() ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("document: encode: %w", err)
	}
	return data, nil
}

// Clone returns a deep copy of the Document.
func (d Document) Clone() Document {
	if d == nil {
		return New()
	}
	return CloneValue(map[string]any(d)).(map[string]any)
}

// CloneValue deep-copies the JSON value tree. Scalars are immutable and
// returned as-is.
func CloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		return CloneValue(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = CloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Get resolves a payload path against the Document. Absent fields,
// out-of-range indexes, and shape mismatches all report (nil, false);
// lookups never fail with an error.
func (d Document) Get(p Path) (any, bool) {
	if p.IsContext() {
		return nil, false
	}
	if p.IsRoot() {
		return map[string]any(d), true
	}

	return d.Lookup(p.Segments())
}

// Lookup resolves raw path segments against the Document. It carries
// the same never-fails contract as Get. Context paths are resolved by
// calling Lookup on the context document directly.
func (d Document) Lookup(segs []Segment) (any, bool) {
	var cur any = map[string]any(d)
	for _, seg := range segs {
		switch node := cur.(type) {
		case map[string]any:
			if seg.IsIndex {
				return nil, false
			}
			next, ok := node[seg.Key]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			if !seg.IsIndex || seg.Index >= len(node) {
				return nil, false
			}
			cur = node[seg.Index]
		default:
			return nil, false
		}
	}

	return cur, true
}

// GetString resolves a path and asserts the value is a string.
func (d Document) GetString(p Path) (string, bool) {
	v, ok := d.Get(p)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetNumber resolves a path and asserts the value is numeric. Integers
// decoded from YAML arrive as int; JSON always produces float64.
func (d Document) GetNumber(p Path) (float64, bool) {
	v, ok := d.Get(p)
	if !ok {
		return 0, false
	}
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

// Set returns a copy of the Document with value written at path.
// Intermediate objects are created as needed; writing past the end of
// an array extends it, padding skipped slots with null. The receiver is
// never modified.
func (d Document) Set(p Path, value any) (Document, error) {
	if p.IsContext() {
		return nil, fmt.Errorf("document: cannot write to context path %q", p)
	}

	if p.IsRoot() {
		obj, ok := asObject(value)
		if !ok {
			return nil, fmt.Errorf("document: cannot replace document root with %T", value)
		}
		return Document(CloneValue(obj).(map[string]any)), nil
	}

	out := d.Clone()
	if err := setIn(map[string]any(out), p.Segments(), CloneValue(value)); err != nil {
		return nil, fmt.Errorf("document: set %q: %w", p, err)
	}
	return out, nil
}

// Merge inserts value at path, leaving all sibling fields untouched.
// An empty (root) path replaces the whole document with value, which
// must then be an object. This is Set under the name the result-merge
// step uses; both are non-destructive.
func (d Document) Merge(p Path, value any) (Document, error) {
	return d.Set(p, value)
}

// asObject normalizes the two object shapes a value may carry.
func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case Document:
		return map[string]any(t), true
	case map[string]any:
		return t, true
	default:
		return nil, false
	}
}

// setIn destructively writes value into node along segs. node is always
// a freshly cloned tree, so mutation is safe here.
func setIn(node any, segs []Segment, value any) error {
	seg := segs[0]
	last := len(segs) == 1

	switch t := node.(type) {
	case map[string]any:
		if seg.IsIndex {
			return fmt.Errorf("index applied to object")
		}
		if last {
			t[seg.Key] = value
			return nil
		}
		child, ok := t[seg.Key]
		if !ok || !descendable(child, segs[1]) {
			child = emptyFor(segs[1])
			t[seg.Key] = child
		}
		// Arrays may be grown in place below; re-store the child after
		// descending in case it was reallocated.
		grown, err := setInValue(child, segs[1:], value)
		if err != nil {
			return err
		}
		t[seg.Key] = grown
		return nil
	case []any:
		return fmt.Errorf("object segment applied to array")
	default:
		return fmt.Errorf("cannot descend into %T", node)
	}
}

// setInValue handles a child node that may be an array needing growth.
// It returns the (possibly reallocated) child.
func setInValue(node any, segs []Segment, value any) (any, error) {
	seg := segs[0]
	last := len(segs) == 1

	switch t := node.(type) {
	case map[string]any:
		if err := setIn(t, segs, value); err != nil {
			return nil, err
		}
		return t, nil
	case []any:
		if !seg.IsIndex {
			return nil, fmt.Errorf("field segment %q applied to array", seg.Key)
		}
		for len(t) <= seg.Index {
			t = append(t, nil)
		}
		if last {
			t[seg.Index] = value
			return t, nil
		}
		child := t[seg.Index]
		if !descendable(child, segs[1]) {
			child = emptyFor(segs[1])
		}
		grown, err := setInValue(child, segs[1:], value)
		if err != nil {
			return nil, err
		}
		t[seg.Index] = grown
		return t, nil
	default:
		return nil, fmt.Errorf("cannot descend into %T", node)
	}
}

// descendable reports whether node can host the next segment.
func descendable(node any, next Segment) bool {
	switch node.(type) {
	case map[string]any:
		return !next.IsIndex
	case []any:
		return next.IsIndex
	default:
		return false
	}
}

// emptyFor returns the container the next segment requires.
func emptyFor(next Segment) any {
	if next.IsIndex {
		return []any{}
	}
	return map[string]any{}
}
