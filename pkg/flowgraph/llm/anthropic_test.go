package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/randalmurphal/flowchat/pkg/flowgraph/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const messageResponse = `{
	"id": "msg_01",
	"type": "message",
	"role": "assistant",
	"model": "claude-3-7-sonnet-20250219",
	"content": [{"type": "text", "text": "Hello! I am Claude, how can I help you today?"}],
	"stop_reason": "end_turn",
	"stop_sequence": null,
	"usage": {"input_tokens": 12, "output_tokens": 11}
}`

type capturedRequest struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	System      []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"system"`
	Messages []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
}

func newMessagesServer(t *testing.T, status int, body string, captured *capturedRequest, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		if captured != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAnthropicClient_Complete(t *testing.T) {
	var got capturedRequest
	var hits atomic.Int32
	srv := newMessagesServer(t, http.StatusOK, messageResponse, &got, &hits)

	client := llm.NewAnthropicClient(llm.WithAPIKey("test-key"), llm.WithBaseURL(srv.URL))

	resp, err := client.Complete(context.Background(), llm.CompletionRequest{
		SystemPrompt: "You are a test assistant",
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "Hi"},
			{Role: llm.RoleAssistant, Content: "Hello."},
			{Role: llm.RoleUser, Content: "Hello, Claude!"},
		},
		Temperature: 0,
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello! I am Claude, how can I help you today?", resp.Text())
	assert.Equal(t, "claude-3-7-sonnet-20250219", resp.Model)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, llm.TokenUsage{InputTokens: 12, OutputTokens: 11, TotalTokens: 23}, resp.Usage)

	assert.Equal(t, llm.DefaultModel, got.Model)
	assert.Equal(t, llm.DefaultMaxTokens, got.MaxTokens)
	assert.Equal(t, 0.0, got.Temperature)
	require.Len(t, got.System, 1)
	assert.Equal(t, "You are a test assistant", got.System[0].Text)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "assistant", got.Messages[1].Role)
	assert.Equal(t, "Hello, Claude!", got.Messages[2].Content[0].Text)
	assert.Equal(t, int32(1), hits.Load())
}

func TestAnthropicClient_RequestOverrides(t *testing.T) {
	var got capturedRequest
	var hits atomic.Int32
	srv := newMessagesServer(t, http.StatusOK, messageResponse, &got, &hits)

	client := llm.NewAnthropicClient(
		llm.WithAPIKey("test-key"),
		llm.WithBaseURL(srv.URL),
		llm.WithModel("client-default"),
		llm.WithMaxTokens(100),
	)

	_, err := client.Complete(context.Background(), llm.CompletionRequest{
		Model:     "per-request",
		MaxTokens: 50,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "per-request", got.Model)
	assert.Equal(t, 50, got.MaxTokens)
	assert.Empty(t, got.System)
}

func TestAnthropicClient_ErrorsAreNotRetried(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{name: "overloaded", status: 529, retryable: true},
		{name: "rate limited", status: http.StatusTooManyRequests, retryable: true},
		{name: "server error", status: http.StatusInternalServerError, retryable: true},
		{name: "bad request", status: http.StatusBadRequest, retryable: false},
		{name: "unauthorized", status: http.StatusUnauthorized, retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			body := `{"type":"error","error":{"type":"api_error","message":"boom"}}`
			srv := newMessagesServer(t, tt.status, body, nil, &hits)

			client := llm.NewAnthropicClient(llm.WithAPIKey("test-key"), llm.WithBaseURL(srv.URL))
			_, err := client.Complete(context.Background(), llm.CompletionRequest{
				Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
			})

			require.Error(t, err)
			var llmErr *llm.Error
			require.ErrorAs(t, err, &llmErr)
			assert.Equal(t, "complete", llmErr.Op)
			assert.Equal(t, tt.retryable, llm.IsRetryable(err))
			assert.Equal(t, int32(1), hits.Load(), "no automatic retries")
		})
	}
}

func TestAnthropicClient_UnsupportedRole(t *testing.T) {
	client := llm.NewAnthropicClient(llm.WithAPIKey("test-key"), llm.WithBaseURL("http://127.0.0.1:0"))

	_, err := client.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: "system", Content: "nope"}},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported role")
}

func TestAnthropicClient_ContextCancelled(t *testing.T) {
	var hits atomic.Int32
	srv := newMessagesServer(t, http.StatusOK, messageResponse, nil, &hits)
	client := llm.NewAnthropicClient(llm.WithAPIKey("test-key"), llm.WithBaseURL(srv.URL))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
	})
	assert.ErrorIs(t, err, context.Canceled)
}
