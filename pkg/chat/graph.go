package chat

import (
	"errors"
	"io"
	"log/slog"

	"github.com/randalmurphal/flowchat/pkg/flowgraph"
	"github.com/randalmurphal/flowchat/pkg/flowgraph/llm"
)

// GraphConfig holds the collaborators of the chat graph.
type GraphConfig struct {
	// Client answers completions. When nil, the node uses the client on
	// its flowgraph.Context.
	Client llm.Client
	Model  ModelConfig

	Input  LineSource
	Output io.Writer
	Render Renderer
}

// BuildGraph compiles the chat cycle: tools → model → route_after_model → tools.
// The graph has no path to END; runs stop when InputStep returns ErrExit.
func BuildGraph(cfg GraphConfig) (*flowgraph.CompiledGraph[State], error) {
	if cfg.Input == nil {
		return nil, errors.New("chat: input source is required")
	}
	if cfg.Output == nil {
		cfg.Output = io.Discard
	}

	model := func(ctx flowgraph.Context, s State) (State, error) {
		client := cfg.Client
		if client == nil {
			client = ctx.LLM()
		}
		if client == nil {
			return s, errors.New("chat: no LLM client configured")
		}
		return s.Apply(ModelStep(ctx, client, cfg.Model, s)), nil
	}

	tools := func(ctx flowgraph.Context, s State) (State, error) {
		upd, err := InputStep(ctx, cfg.Input, cfg.Output, cfg.Render, s)
		if err != nil {
			return s, err
		}
		return s.Apply(upd), nil
	}

	return flowgraph.NewGraph[State]().
		AddNode(NodeTools, tools).
		AddNode(NodeModel, model).
		AddEdge(NodeTools, NodeModel).
		AddConditionalEdge(NodeModel, routeAfterModel, RouteInput.NodeID()).
		SetEntry(NodeTools).
		Compile(flowgraph.WithoutTerminal())
}

func routeAfterModel(ctx flowgraph.Context, s State) string {
	ctx.Logger().Info("in condition", slog.String("condition", ConditionRouteAfterModel))
	return RouteAfterModel(s).NodeID()
}

// Handlers are the pieces a generated agent is assembled from.
type Handlers struct {
	Model flowgraph.NodeFunc[State]
	Tools flowgraph.NodeFunc[State]

	// RouteAfterModel returns NodeTools or flowgraph.END.
	RouteAfterModel flowgraph.RouterFunc[State]
}

// NewAgentGraph assembles the generated agent shape: START → model,
// tools → model, and model → {tools, END} via RouteAfterModel.
// The caller compiles the result.
func NewAgentGraph(h Handlers) *flowgraph.Graph[State] {
	return flowgraph.NewGraph[State]().
		AddNode(NodeModel, h.Model).
		AddNode(NodeTools, h.Tools).
		AddEdge(flowgraph.START, NodeModel).
		AddEdge(NodeTools, NodeModel).
		AddConditionalEdge(NodeModel, h.RouteAfterModel, NodeTools, flowgraph.END)
}
