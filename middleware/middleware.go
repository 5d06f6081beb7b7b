// Package middleware provides composable middleware for task
// invocations. Middleware wraps invoker calls synchronously and can
// modify execution (recover from panics, log, add tracing, rate-limit,
// etc.).
package middleware

import (
	"context"

	"github.com/awsdataarchitect/ai-compliance-auditor/document"
	"github.com/awsdataarchitect/ai-compliance-auditor/task"
)

// Invocation describes one task call flowing through the chain.
type Invocation struct {
	// Task is the registered task name.
	Task string
	// Payload is the resolved input document.
	Payload document.Document
}

// Handler is the terminal function that executes the task.
type Handler func(ctx context.Context) (document.Document, error)

// Middleware wraps a Handler with cross-cutting logic. It receives the
// current context, the invocation being executed, and the next handler
// to call. Middleware MUST call next to continue the chain (unless
// short-circuiting on error).
type Middleware func(ctx context.Context, inv *Invocation, next Handler) (document.Document, error)

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
//
// Example: Chain(logging, recover, timeout) executes as:
//
//	logging → recover → timeout → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, inv *Invocation, next Handler) (document.Document, error) {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) (document.Document, error) {
				return mw(ctx, inv, prev)
			}
		}
		return h(ctx)
	}
}

// Wrap decorates an invoker with the given middleware. The first
// middleware is the outermost wrapper.
func Wrap(inner task.Invoker, mws ...Middleware) task.Invoker {
	return &wrapped{inner: inner, mw: Chain(mws...)}
}

type wrapped struct {
	inner task.Invoker
	mw    Middleware
}

func (w *wrapped) Invoke(ctx context.Context, name string, payload document.Document) (document.Document, error) {
	inv := &Invocation{Task: name, Payload: payload}
	return w.mw(ctx, inv, func(ctx context.Context) (document.Document, error) {
		return w.inner.Invoke(ctx, name, payload)
	})
}
