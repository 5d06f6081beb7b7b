// Package engine interprets workflow definitions. It owns the step
// loop: resolving each state's input from the working document,
// invoking tasks, applying retry and catch policies, fanning parallel
// branches out and back in, and persisting the execution record as it
// moves through the graph.
//
// An Engine is built from functional options and is safe for
// concurrent use; each execution gets its own working document and
// retry counters.
//
//	eng, err := engine.New(
//		engine.WithStore(memory.New()),
//		engine.WithInvoker(registry),
//	)
package engine
