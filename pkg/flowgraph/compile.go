package flowgraph

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// compileConfig holds options that relax or extend compile-time validation.
type compileConfig struct {
	requireTerminal bool
}

// CompileOption configures Compile.
type CompileOption func(*compileConfig)

// WithoutTerminal skips the path-to-END check.
//
// Use it for conversational loops that never reach END in-graph and
// instead stop when a node returns ErrHalt or the context is cancelled.
func WithoutTerminal() CompileOption {
	return func(c *compileConfig) {
		c.requireTerminal = false
	}
}

// Compile validates the graph and creates an executable CompiledGraph.
// Returns an error if validation fails. Multiple errors are joined together.
//
// Validation checks (in order):
//  1. Entry point must be set
//  2. Entry point must reference an existing node
//  3. Every simple edge must connect existing nodes (or END)
//  4. A node may have at most one simple edge
//  5. Conditional edges must start at existing nodes and declare existing targets
//  6. The entry must have a path to END (unless WithoutTerminal is given)
//
// Unreachable nodes are logged as warnings but do not fail compilation.
func (g *Graph[S]) Compile(opts ...CompileOption) (*CompiledGraph[S], error) {
	cfg := compileConfig{requireTerminal: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error

	if g.entryPoint == "" {
		errs = append(errs, ErrNoEntryPoint)
	} else if _, exists := g.nodes[g.entryPoint]; !exists {
		errs = append(errs, fmt.Errorf("%w: %s", ErrEntryNotFound, g.entryPoint))
	}

	for _, from := range sortedKeys(g.edges) {
		targets := g.edges[from]
		if _, exists := g.nodes[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: edge source '%s' does not exist", ErrNodeNotFound, from))
		}
		if len(targets) > 1 {
			errs = append(errs, fmt.Errorf("%w: node '%s' has %d outgoing edges", ErrMultipleEdges, from, len(targets)))
		}
		for _, to := range targets {
			if !g.isTarget(to) {
				errs = append(errs, fmt.Errorf("%w: edge target '%s' does not exist", ErrNodeNotFound, to))
			}
		}
	}

	for _, from := range sortedKeys(g.routes) {
		if _, exists := g.nodes[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: conditional edge source '%s' does not exist", ErrNodeNotFound, from))
		}
		for _, to := range sortedKeys(g.routes[from].targets) {
			if !g.isTarget(to) {
				errs = append(errs, fmt.Errorf("%w: route target '%s' from '%s' does not exist", ErrNodeNotFound, to, from))
			}
		}
	}

	if cfg.requireTerminal && g.entryPoint != "" {
		if _, exists := g.nodes[g.entryPoint]; exists && !g.hasPathToEnd() {
			errs = append(errs, ErrNoPathToEnd)
		}
	}

	g.warnUnreachableNodes()

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return g.buildCompiledGraph(), nil
}

// isTarget reports whether id is a valid edge target.
func (g *Graph[S]) isTarget(id string) bool {
	if id == END {
		return true
	}
	_, exists := g.nodes[id]
	return exists
}

// successorsOf returns every node id may hand control to.
// A route without declared targets may reach any node, END included.
func (g *Graph[S]) successorsOf(id string) []string {
	if r, ok := g.routes[id]; ok {
		if len(r.targets) == 0 {
			all := make([]string, 0, len(g.nodes)+1)
			for n := range g.nodes {
				all = append(all, n)
			}
			return append(all, END)
		}
		return sortedKeys(r.targets)
	}
	return g.edges[id]
}

// hasPathToEnd checks if END is reachable from the entry point.
func (g *Graph[S]) hasPathToEnd() bool {
	return g.findReachableNodes()[END]
}

// warnUnreachableNodes logs warnings for nodes not reachable from entry.
func (g *Graph[S]) warnUnreachableNodes() {
	if g.entryPoint == "" {
		return
	}

	reachable := g.findReachableNodes()
	for _, nodeID := range sortedKeys(g.nodes) {
		if !reachable[nodeID] {
			slog.Warn("node is unreachable from entry", "node_id", nodeID)
		}
	}
}

// findReachableNodes returns the set of nodes (and possibly END) reachable from the entry point.
func (g *Graph[S]) findReachableNodes() map[string]bool {
	reachable := make(map[string]bool)
	if g.entryPoint == "" {
		return reachable
	}

	queue := []string{g.entryPoint}
	reachable[g.entryPoint] = true

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range g.successorsOf(current) {
			if reachable[next] {
				continue
			}
			reachable[next] = true
			if next != END {
				queue = append(queue, next)
			}
		}
	}

	return reachable
}

// buildCompiledGraph creates the immutable CompiledGraph from the builder state.
func (g *Graph[S]) buildCompiledGraph() *CompiledGraph[S] {
	nodes := make(map[string]NodeFunc[S], len(g.nodes))
	for id, fn := range g.nodes {
		nodes[id] = fn
	}

	edges := make(map[string]string, len(g.edges))
	for from, targets := range g.edges {
		if len(targets) > 0 {
			edges[from] = targets[0]
		}
	}

	routes := make(map[string]route[S], len(g.routes))
	for from, r := range g.routes {
		copied := route[S]{router: r.router}
		if len(r.targets) > 0 {
			copied.targets = make(map[string]bool, len(r.targets))
			for t := range r.targets {
				copied.targets[t] = true
			}
		}
		routes[from] = copied
	}

	predecessors := make(map[string][]string)
	for _, from := range sortedKeys(g.nodes) {
		for _, to := range g.successorsOf(from) {
			if to != END {
				predecessors[to] = append(predecessors[to], from)
			}
		}
	}

	return &CompiledGraph[S]{
		nodes:        nodes,
		edges:        edges,
		routes:       routes,
		entryPoint:   g.entryPoint,
		predecessors: predecessors,
	}
}

// sortedKeys returns the keys of m in ascending order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
