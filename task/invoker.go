package task

import (
	"context"
	"fmt"
	"sync"

	auditor "github.com/awsdataarchitect/ai-compliance-auditor"
	"github.com/awsdataarchitect/ai-compliance-auditor/document"
)

// Invoker executes a named external capability with a payload document
// and returns its result document. Implementations must be safe for
// concurrent use and safely retryable: the engine delivers at-least-once
// invocation semantics, so handlers must be idempotent or retry-safe.
type Invoker interface {
	Invoke(ctx context.Context, name string, payload document.Document) (document.Document, error)
}

// Handler is the function signature for locally registered tasks.
type Handler func(ctx context.Context, payload document.Document) (document.Document, error)

// Registry is an in-process Invoker mapping task names to handler
// functions. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler under the given task name, replacing any
// previous registration.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Names returns all registered task names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// Invoke implements Invoker. Unknown task names fail with the
// TaskNotRegistered class, which no default retry rule matches.
func (r *Registry) Invoke(ctx context.Context, name string, payload document.Document) (document.Document, error) {
	r.mu.RLock()
	h, ok := r.handlers[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &Error{
			Class:   ErrorClassNotRegistered,
			Message: fmt.Sprintf("%v: %s", auditor.ErrTaskNotFound, name),
		}
	}

	return h(ctx, payload)
}
