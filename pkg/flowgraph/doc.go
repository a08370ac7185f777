/*
Package flowgraph runs typed state through a graph of nodes.

# Overview

A graph is a set of nodes (functions from state to state) joined by edges.
Simple edges always lead to the same node; conditional edges call a router
that picks the next node from the state. Execution starts at the entry node
and ends at END, on a node error, or on cancellation.

Conversational loops never reach END. They compile WithoutTerminal and stop
when a node returns an error wrapping ErrHalt:

	var ErrExit = fmt.Errorf("user exited: %w", flowgraph.ErrHalt)

	compiled, err := flowgraph.NewGraph[State]().
	    AddNode("tools", readLine).
	    AddNode("model", complete).
	    AddEdge("tools", "model").
	    AddConditionalEdge("model", routeAfterModel, "tools").
	    SetEntry("tools").
	    Compile(flowgraph.WithoutTerminal())

	ctx := flowgraph.NewContext(context.Background(), flowgraph.WithLLM(client))
	_, err = compiled.Run(ctx, State{}, flowgraph.WithUnboundedIterations())
	if errors.Is(err, ErrExit) {
	    // normal end of conversation
	}

# Routing

A router returns a node ID or END. Targets listed in AddConditionalEdge are
checked at compile time and enforced at run time; a route with no listed
targets may lead anywhere. An empty result, an unknown node or an undeclared
target fails the run with a *RouterError.

Runs stop after DefaultMaxIterations node executions unless WithMaxIterations
or WithUnboundedIterations says otherwise.

# Checkpointing

With WithCheckpointing and WithRunID a checkpoint is saved after every node,
recording the state and the node that runs next:

	store, err := checkpoint.NewSQLiteStore("chat.db")
	result, err := compiled.Run(ctx, state,
	    flowgraph.WithCheckpointing(store),
	    flowgraph.WithRunID("conv-1"))

	// Later, in a new process:
	result, err = compiled.Resume(ctx, store, "conv-1")

Save failures are logged and skipped unless WithCheckpointFailureFatal is set.

# Observability

	result, err := compiled.Run(ctx, state,
	    flowgraph.WithObservabilityLogger(logger),
	    flowgraph.WithMetrics(true),
	    flowgraph.WithTracing(true))

Metrics and spans use the global OpenTelemetry providers. Spans are named
flowgraph.run and flowgraph.node.<id>; a halting node ends its span with an
Ok status and a flowgraph.halt event.

# Errors

Node failures come back as *NodeError, recovered panics as *PanicError with
the stack, and cancellation between nodes as *CancellationError holding the
last state. IsHalt reports whether a run ended on purpose.

# Thread Safety

Graph is safe for concurrent construction. CompiledGraph is immutable and may
run many conversations at once. Store implementations are safe for
concurrent use.

# Subpackages

  - checkpoint: stores for memory, SQLite and Redis
  - config: layered YAML configuration
  - errors: error categories for LLM and HTTP failures
  - llm: completion client interface, Anthropic client and mock
  - observability: log helpers, metrics and spans
*/
package flowgraph
