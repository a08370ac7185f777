package flowgraph

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is a mutable builder for creating execution graphs.
// Use NewGraph to create a new graph, then chain AddNode, AddEdge,
// AddConditionalEdge and SetEntry calls to define the workflow.
//
// Graph is NOT thread-safe during building. Use a single goroutine
// to construct the graph, then call Compile() to create an immutable
// CompiledGraph that can be safely shared.
//
// Example:
//
//	graph := flowgraph.NewGraph[Transcript]().
//	    AddNode("listen", listen).
//	    AddNode("answer", answer).
//	    AddEdge("listen", "answer").
//	    AddConditionalEdge("answer", routeAfterAnswer, "listen", flowgraph.END).
//	    SetEntry("listen")
type Graph[S any] struct {
	mu         sync.RWMutex
	nodes      map[string]NodeFunc[S]
	edges      map[string][]string
	routes     map[string]route[S]
	entryPoint string
}

// route is a conditional edge: a router plus the targets it declared.
// An empty target set means the router may return any node.
type route[S any] struct {
	router  RouterFunc[S]
	targets map[string]bool
}

// allows reports whether the route may lead to target.
func (r route[S]) allows(target string) bool {
	if len(r.targets) == 0 {
		return true
	}
	return r.targets[target]
}

// NewGraph creates a new graph builder for state type S.
// The type parameter S defines the state that flows through the graph.
func NewGraph[S any]() *Graph[S] {
	return &Graph[S]{
		nodes:  make(map[string]NodeFunc[S]),
		edges:  make(map[string][]string),
		routes: make(map[string]route[S]),
	}
}

// AddNode adds a named node to the graph.
// Returns the graph for method chaining.
//
// Panics if:
//   - id is empty
//   - id is a reserved word ("END", "__end__", "START", "__start__"; case-insensitive)
//   - id contains whitespace
//   - fn is nil
//   - id already exists in the graph
func (g *Graph[S]) AddNode(id string, fn NodeFunc[S]) *Graph[S] {
	if id == "" {
		panic("flowgraph: node ID cannot be empty")
	}

	switch strings.ToLower(id) {
	case "end", END:
		panic("flowgraph: node ID cannot be reserved word 'END'")
	case "start", START:
		panic("flowgraph: node ID cannot be reserved word 'START'")
	}

	if strings.ContainsAny(id, " \t\n\r") {
		panic("flowgraph: node ID cannot contain whitespace")
	}

	if fn == nil {
		panic("flowgraph: node function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[id]; exists {
		panic(fmt.Sprintf("flowgraph: duplicate node ID: %s", id))
	}

	g.nodes[id] = fn
	return g
}

// AddEdge adds an unconditional edge from one node to another.
// The target can be a node ID or flowgraph.END. Using START as the
// source sets the entry point.
//
// Edge validation happens at Compile() time, not here.
// This allows edges to be added in any order.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	if from == START {
		g.entryPoint = to
		return g
	}

	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddConditionalEdge adds a conditional edge where a RouterFunc
// determines the next node at runtime based on state.
//
// targets optionally declares every node the router may return
// (flowgraph.END included). Declared targets are validated at Compile()
// time and enforced at runtime. With no targets the router may return any node.
//
// A conditional edge takes precedence over simple edges from the same node.
func (g *Graph[S]) AddConditionalEdge(from string, router RouterFunc[S], targets ...string) *Graph[S] {
	if router == nil {
		panic("flowgraph: router function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	r := route[S]{router: router}
	if len(targets) > 0 {
		r.targets = make(map[string]bool, len(targets))
		for _, t := range targets {
			r.targets[t] = true
		}
	}
	g.routes[from] = r
	return g
}

// SetEntry designates the entry point node.
// This must be called (or AddEdge(START, id) used) before Compile().
//
// Entry point validation happens at Compile() time.
func (g *Graph[S]) SetEntry(id string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entryPoint = id
	return g
}
