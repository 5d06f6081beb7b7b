// Package auditor provides a declarative state-machine engine for
// multi-step content-processing pipelines. It interprets workflow
// definitions composed of Pass, Task, Parallel, and Choice states,
// with per-state retry, catch fallbacks, and path-addressed data flow
// between steps.
//
// The engine is a library, not a service. Load a definition, register
// task handlers, configure a store, and start executions:
//
//	eng, err := engine.New(
//	    engine.WithStore(memory.New()),
//	    engine.WithInvoker(reg),
//	)
//	err = eng.Register(def)
//	exec, err := eng.StartExecution(ctx, "content-moderation", input)
//
// # Architecture
//
// Each subsystem lives in its own package: document (path-addressable
// working data), state (definition graph and validation), task (invoker
// abstraction and error classification), retry (retry/catch evaluation),
// execution (run records and the store contract), engine (the
// interpreter), and store/* (backends).
//
// All entity IDs use TypeID: type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers.
package auditor
