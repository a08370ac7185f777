package chat

import "fmt"

// Node identifiers.
const (
	NodeModel = "model"
	NodeTools = "tools"

	// ConditionRouteAfterModel names the conditional edge leaving NodeModel.
	ConditionRouteAfterModel = "route_after_model"
)

// Route is a step the router can select.
type Route int

const (
	// RouteInput returns control to the input step.
	RouteInput Route = iota
)

// NodeID returns the graph node the route leads to.
func (r Route) NodeID() string {
	switch r {
	case RouteInput:
		return NodeTools
	default:
		return fmt.Sprintf("route(%d)", int(r))
	}
}

func (r Route) String() string { return r.NodeID() }

// RouteAfterModel picks the step after the model step. Every turn goes back
// to input, so the result is always RouteInput.
func RouteAfterModel(State) Route {
	return RouteInput
}
