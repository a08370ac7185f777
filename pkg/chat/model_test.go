package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/flowchat/pkg/flowgraph"
	fgerrors "github.com/randalmurphal/flowchat/pkg/flowgraph/errors"
	"github.com/randalmurphal/flowchat/pkg/flowgraph/llm"
	"github.com/randalmurphal/flowchat/pkg/flowgraph/observability"
)

type completionRecord struct {
	model    string
	in, out  int
	failed   bool
	duration time.Duration
}

type recordingMetrics struct {
	observability.NoopMetrics
	mu          sync.Mutex
	completions []completionRecord
}

func (m *recordingMetrics) RecordCompletion(_ context.Context, model string, in, out int, d time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completions = append(m.completions, completionRecord{model: model, in: in, out: out, failed: err != nil, duration: d})
}

func TestModelStep_Scenario_Reply(t *testing.T) {
	client := llm.NewMockClient("Hello! I am Claude, how can I help you today?")
	s := seeded("You are a test assistant", "Hello, Claude!")

	next := s.Apply(ModelStep(context.Background(), client, DefaultModelConfig(), s))

	assert.Equal(t, "Hello! I am Claude, how can I help you today?", next.LastReply)
	assert.Empty(t, next.PendingInput)
	assert.Equal(t, []Message{
		{Role: RoleSystem, Content: "You are a test assistant"},
		{Role: RoleUser, Content: "Hello, Claude!"},
		{Role: RoleAssistant, Content: "Hello! I am Claude, how can I help you today?"},
	}, next.Messages)
}

func TestModelStep_Scenario_Failure(t *testing.T) {
	client := llm.NewMockClient("unused").WithError(errors.New("connection refused"))
	s := seeded("You are a test assistant", "Hello, Claude!")

	next := s.Apply(ModelStep(context.Background(), client, DefaultModelConfig(), s))

	assert.Equal(t, Apology, next.LastReply)
	assert.Empty(t, next.PendingInput)
	assert.Equal(t, []Message{{Role: RoleSystem, Content: "You are a test assistant"}}, next.Messages)
	assert.Equal(t, 1, client.CallCount(), "failures are not retried")
}

func TestModelStep_AppendsExactlyOneTurn(t *testing.T) {
	history := []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "reply one"},
		{Role: RoleUser, Content: "second"},
		{Role: RoleAssistant, Content: "reply two"},
	}

	for n := 1; n <= len(history); n += 2 {
		s := State{Messages: history[:n], PendingInput: "next question", LastReply: "stale"}
		client := llm.NewMockClient("answer")

		next := s.Apply(ModelStep(context.Background(), client, DefaultModelConfig(), s))

		require.Len(t, next.Messages, n+2)
		assert.Equal(t, history[:n], next.Messages[:n])
		assert.Equal(t, Message{Role: RoleUser, Content: "next question"}, next.Messages[n])
		assert.Equal(t, Message{Role: RoleAssistant, Content: "answer"}, next.Messages[n+1])
		assert.Equal(t, next.Messages[n+1].Content, next.LastReply)
		assert.Empty(t, next.PendingInput)
	}
}

func TestModelStep_EmptyPending(t *testing.T) {
	client := llm.NewMockClient("never")
	s := NewState("sys")
	s.Messages = append(s.Messages, Message{Role: RoleUser, Content: "hi"}, Message{Role: RoleAssistant, Content: "hey"})
	s.LastReply = "hey"

	upd := ModelStep(context.Background(), client, DefaultModelConfig(), s)
	next := s.Apply(upd)

	assert.Nil(t, upd.Messages)
	assert.Equal(t, s.Messages, next.Messages)
	assert.Empty(t, next.LastReply)
	assert.Empty(t, next.PendingInput)
	assert.Zero(t, client.CallCount())
}

func TestModelStep_Request(t *testing.T) {
	client := llm.NewMockClient("ok")
	cfg := ModelConfig{Model: "claude-test", Temperature: 0.5, MaxTokens: 123, DefaultSystemPrompt: "fallback"}
	s := State{
		Messages: []Message{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "q1"},
			{Role: RoleAssistant, Content: "a1"},
		},
		PendingInput: "q2",
	}

	ModelStep(context.Background(), client, cfg, s)

	req := client.LastCall()
	require.NotNil(t, req)
	assert.Equal(t, "sys", req.SystemPrompt)
	assert.Equal(t, "claude-test", req.Model)
	assert.Equal(t, 0.5, req.Temperature)
	assert.Equal(t, 123, req.MaxTokens)
	assert.Equal(t, []llm.Message{
		{Role: llm.RoleUser, Content: "q1"},
		{Role: llm.RoleAssistant, Content: "a1"},
		{Role: llm.RoleUser, Content: "q2"},
	}, req.Messages)
}

func TestModelStep_DefaultSystemPrompt(t *testing.T) {
	client := llm.NewMockClient("ok")
	s := State{PendingInput: "hi"}

	next := s.Apply(ModelStep(context.Background(), client, DefaultModelConfig(), s))

	assert.Equal(t, DefaultSystemPrompt, client.LastCall().SystemPrompt)
	for _, m := range next.Messages {
		assert.NotEqual(t, RoleSystem, m.Role, "fallback prompt is never inserted")
	}
	assert.Len(t, next.Messages, 2)
}

func TestModelStep_NoTextBlock(t *testing.T) {
	client := llm.NewMockClient("").WithCompleteFunc(func(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return &llm.CompletionResponse{Content: []llm.ContentBlock{{Type: "tool_use"}}}, nil
	})
	s := seeded("sys", "hi")

	next := s.Apply(ModelStep(context.Background(), client, DefaultModelConfig(), s))

	require.Len(t, next.Messages, 3)
	assert.Equal(t, Message{Role: RoleAssistant, Content: ""}, next.Messages[2])
	assert.Empty(t, next.LastReply)
}

func TestModelStep_Observability(t *testing.T) {
	logger, buf := captureLogger()
	ctx := flowgraph.NewContext(context.Background(), flowgraph.WithLogger(logger))

	t.Run("success", func(t *testing.T) {
		buf.Reset()
		metrics := &recordingMetrics{}
		cfg := DefaultModelConfig()
		cfg.Metrics = metrics

		ModelStep(ctx, llm.NewMockClient("two words"), cfg, seeded("sys", "hello there"))

		assert.Contains(t, buf.String(), "msg=\"in node\" node=model")
		assert.Contains(t, buf.String(), "completion finished")
		require.Len(t, metrics.completions, 1)
		assert.False(t, metrics.completions[0].failed)
		assert.Equal(t, 3, metrics.completions[0].in)
		assert.Equal(t, 2, metrics.completions[0].out)
	})

	t.Run("failure is categorized", func(t *testing.T) {
		buf.Reset()
		metrics := &recordingMetrics{}
		cfg := DefaultModelConfig()
		cfg.Metrics = metrics
		client := llm.NewMockClient("").WithError(llm.NewError("complete",
			&fgerrors.HTTPError{StatusCode: 529, Message: "overloaded"}, true))

		ModelStep(ctx, client, cfg, seeded("sys", "hello"))

		assert.Contains(t, buf.String(), "completion failed")
		assert.Contains(t, buf.String(), "category=transient")
		require.Len(t, metrics.completions, 1)
		assert.True(t, metrics.completions[0].failed)
	})
}

func TestModelStep_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := seeded("sys", "hello")

	next := s.Apply(ModelStep(ctx, llm.NewMockClient("never"), DefaultModelConfig(), s))

	assert.Equal(t, Apology, next.LastReply)
	assert.Len(t, next.Messages, 1)
}
