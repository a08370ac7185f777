package chat

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/flowchat/pkg/flowgraph"
	"github.com/randalmurphal/flowchat/pkg/flowgraph/llm"
)

func TestBuildGraph_Shape(t *testing.T) {
	compiled, err := BuildGraph(GraphConfig{Client: llm.NewMockClient("x"), Input: newScriptedSource()})
	require.NoError(t, err)

	assert.Equal(t, NodeTools, compiled.EntryPoint())
	assert.ElementsMatch(t, []string{NodeModel, NodeTools}, compiled.NodeIDs())
	assert.Equal(t, NodeModel, compiled.Successor(NodeTools))
	assert.True(t, compiled.IsConditional(NodeModel))
	assert.Equal(t, []string{NodeTools}, compiled.RouteTargets(NodeModel))
}

func TestBuildGraph_RequiresInput(t *testing.T) {
	_, err := BuildGraph(GraphConfig{Client: llm.NewMockClient("x")})
	assert.Error(t, err)
}

func TestBuildGraph_Conversation(t *testing.T) {
	client := llm.NewMockClient("").WithResponses("first answer", "second answer")
	src := newScriptedSource("Hello, Claude!", "And again?", "exit")
	var out bytes.Buffer
	logger, logs := captureLogger()

	compiled, err := BuildGraph(GraphConfig{Client: client, Model: DefaultModelConfig(), Input: src, Output: &out})
	require.NoError(t, err)

	ctx := flowgraph.NewContext(context.Background(), flowgraph.WithLogger(logger))
	final, err := compiled.Run(ctx, NewState("You are a test assistant"), flowgraph.WithUnboundedIterations())

	require.ErrorIs(t, err, ErrExit)
	assert.True(t, flowgraph.IsHalt(err))
	assert.Equal(t, 1, src.closeCount())
	assert.Equal(t, 2, client.CallCount())

	assert.Equal(t, []Message{
		{Role: RoleSystem, Content: "You are a test assistant"},
		{Role: RoleUser, Content: "Hello, Claude!"},
		{Role: RoleAssistant, Content: "first answer"},
		{Role: RoleUser, Content: "And again?"},
		{Role: RoleAssistant, Content: "second answer"},
	}, final.Messages)
	assert.Equal(t, "second answer", final.LastReply)
	assert.Empty(t, final.PendingInput)

	assert.Equal(t, "\nAssistant: first answer\n\nAssistant: second answer\n", out.String())

	trace := logs.String()
	assert.Equal(t, 3, strings.Count(trace, "node=tools"))
	assert.Equal(t, 2, strings.Count(trace, "node=model"))
	assert.Equal(t, 2, strings.Count(trace, "condition=route_after_model"))
}

func TestBuildGraph_ApologyKeepsLooping(t *testing.T) {
	calls := 0
	client := llm.NewMockClient("").WithCompleteFunc(func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
		calls++
		if calls == 1 {
			return nil, llm.NewError("complete", context.DeadlineExceeded, true)
		}
		return &llm.CompletionResponse{Content: []llm.ContentBlock{{Type: llm.BlockTypeText, Text: "recovered"}}}, nil
	})
	src := newScriptedSource("one", "two", "exit")
	var out bytes.Buffer

	compiled, err := BuildGraph(GraphConfig{Client: client, Input: src, Output: &out})
	require.NoError(t, err)

	final, err := compiled.Run(flowgraph.NewContext(context.Background()), NewState("sys"),
		flowgraph.WithUnboundedIterations())

	require.ErrorIs(t, err, ErrExit)
	assert.Contains(t, out.String(), "Assistant: "+Apology)
	assert.Equal(t, "recovered", final.LastReply)
	require.Len(t, final.Messages, 3)
	assert.Equal(t, "two", final.Messages[1].Content)
}

func TestBuildGraph_ClientFromContext(t *testing.T) {
	client := llm.NewMockClient("from context")
	src := newScriptedSource("hi", "exit")

	compiled, err := BuildGraph(GraphConfig{Input: src})
	require.NoError(t, err)

	ctx := flowgraph.NewContext(context.Background(), flowgraph.WithLLM(client))
	final, err := compiled.Run(ctx, NewState("sys"), flowgraph.WithUnboundedIterations())

	require.ErrorIs(t, err, ErrExit)
	assert.Equal(t, "from context", final.LastReply)
}

func TestBuildGraph_NoClient(t *testing.T) {
	compiled, err := BuildGraph(GraphConfig{Input: newScriptedSource("hi")})
	require.NoError(t, err)

	_, err = compiled.Run(flowgraph.NewContext(context.Background()), NewState("sys"))

	var nodeErr *flowgraph.NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, NodeModel, nodeErr.NodeID)
	assert.False(t, flowgraph.IsHalt(err))
}

func TestNewAgentGraph(t *testing.T) {
	var visited []string
	h := Handlers{
		Model: func(ctx flowgraph.Context, s State) (State, error) {
			visited = append(visited, NodeModel)
			return s, nil
		},
		Tools: func(ctx flowgraph.Context, s State) (State, error) {
			visited = append(visited, NodeTools)
			s.PendingInput = ""
			return s, nil
		},
		RouteAfterModel: func(ctx flowgraph.Context, s State) string {
			if s.PendingInput != "" {
				return NodeTools
			}
			return flowgraph.END
		},
	}

	compiled, err := NewAgentGraph(h).Compile()
	require.NoError(t, err)
	assert.Equal(t, NodeModel, compiled.EntryPoint())
	assert.ElementsMatch(t, []string{NodeTools, flowgraph.END}, compiled.RouteTargets(NodeModel))

	_, err = compiled.Run(flowgraph.NewContext(context.Background()), seeded("sys", "needs tools"))

	require.NoError(t, err)
	assert.Equal(t, []string{NodeModel, NodeTools, NodeModel}, visited)
}
