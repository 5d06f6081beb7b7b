package state

import (
	"github.com/awsdataarchitect/ai-compliance-auditor/document"
)

// ExprKind discriminates payload template expressions.
type ExprKind int

// Expression kinds.
const (
	// ExprLiteral embeds a constant value verbatim.
	ExprLiteral ExprKind = iota
	// ExprPathRef resolves a path against the working document.
	ExprPathRef
	// ExprContextRef resolves a path against the execution context
	// object (execution identity, entry time).
	ExprContextRef
)

// Expr is a typed payload template expression. Serialized templates use
// a ".$" key suffix to mark reference fields; parsing turns them into
// PathRef or ContextRef so no stringly-typed dispatch happens at run
// time.
type Expr struct {
	Kind    ExprKind
	Value   any           // literal payload, ExprLiteral only
	Path    document.Path // ExprPathRef / ExprContextRef only
}

// Literal returns an expression embedding a constant value.
func Literal(v any) Expr {
	return Expr{Kind: ExprLiteral, Value: v}
}

// PathRef returns an expression resolving p against the working document.
func PathRef(p document.Path) Expr {
	return Expr{Kind: ExprPathRef, Path: p}
}

// ContextRef returns an expression resolving p against the execution
// context object.
func ContextRef(p document.Path) Expr {
	return Expr{Kind: ExprContextRef, Path: p}
}

// Resolve evaluates the expression against the working document and the
// read-only context document. Absent references resolve to nil rather
// than failing; tasks see an explicit null for data that is not there.
// Resolved values are deep copies: a handler mutating its payload must
// never reach the working document or the compiled definition.
func (e Expr) Resolve(doc, ctx document.Document) any {
	switch e.Kind {
	case ExprPathRef:
		v, _ := doc.Get(e.Path)
		return document.CloneValue(v)
	case ExprContextRef:
		v, _ := ctx.Lookup(e.Path.Segments())
		return document.CloneValue(v)
	default:
		return document.CloneValue(e.Value)
	}
}

// ResolveFields builds a task payload by resolving each template field.
func ResolveFields(fields []Field, doc, ctx document.Document) document.Document {
	out := document.New()
	for _, f := range fields {
		out[f.Key] = f.Expr.Resolve(doc, ctx)
	}
	return out
}
