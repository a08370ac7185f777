package flowgraph

// CompiledGraph is an immutable, executable graph.
// It is created by calling Compile() on a Graph builder.
//
// CompiledGraph is thread-safe and can be used concurrently for multiple
// Run() calls. The graph structure cannot be modified after compilation.
type CompiledGraph[S any] struct {
	nodes      map[string]NodeFunc[S]
	edges      map[string]string
	routes     map[string]route[S]
	entryPoint string

	predecessors map[string][]string
}

// EntryPoint returns the entry node ID.
func (cg *CompiledGraph[S]) EntryPoint() string {
	return cg.entryPoint
}

// NodeIDs returns all node identifiers in the graph, sorted.
func (cg *CompiledGraph[S]) NodeIDs() []string {
	return sortedKeys(cg.nodes)
}

// HasNode checks if a node exists in the graph.
func (cg *CompiledGraph[S]) HasNode(id string) bool {
	_, exists := cg.nodes[id]
	return exists
}

// Successor returns the target of the simple edge leaving id, or ""
// if the node has none (END, unknown nodes, and purely conditional nodes).
func (cg *CompiledGraph[S]) Successor(id string) string {
	return cg.edges[id]
}

// Predecessors returns the node IDs that can hand control to the given node.
// Routes without declared targets count as edges to every node.
func (cg *CompiledGraph[S]) Predecessors(id string) []string {
	return cg.predecessors[id]
}

// IsConditional returns true if the node has a conditional edge.
func (cg *CompiledGraph[S]) IsConditional(id string) bool {
	_, exists := cg.routes[id]
	return exists
}

// RouteTargets returns the declared targets of the conditional edge leaving id,
// sorted. Returns nil when the node has no conditional edge or the edge
// did not declare targets.
func (cg *CompiledGraph[S]) RouteTargets(id string) []string {
	r, exists := cg.routes[id]
	if !exists || len(r.targets) == 0 {
		return nil
	}
	return sortedKeys(r.targets)
}
