package flowgraph

// END is the terminal node identifier.
// Use this as an edge or route target to indicate the run should finish.
const END = "__end__"

// START is the virtual node that precedes the entry point.
// AddEdge(START, id) is equivalent to SetEntry(id).
const START = "__start__"

// NodeFunc is the signature for all node functions.
// Nodes receive the execution context and current state,
// and return the updated state (or the same state) and any error.
//
// The state parameter is passed by value. Nodes should modify and return
// a new state value, not rely on pointer mutation. Returning an error that
// wraps ErrHalt stops the run without treating it as a failure.
//
// Example:
//
//	func greet(ctx flowgraph.Context, s Transcript) (Transcript, error) {
//	    s.Lines = append(s.Lines, "hello")
//	    return s, nil
//	}
type NodeFunc[S any] func(ctx Context, state S) (S, error)

// RouterFunc determines the next node based on state.
// It is used for conditional edges where the next node depends on runtime state.
//
// The router should return a valid node ID or flowgraph.END.
// Returning an empty string, an unknown node ID, or a target that was not
// declared on the edge causes a RouterError.
type RouterFunc[S any] func(ctx Context, state S) string
