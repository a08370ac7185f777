package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Defaults used when neither the request nor the client sets a value.
const (
	DefaultModel     = "claude-3-7-sonnet-20250219"
	DefaultMaxTokens = 4000
)

// AnthropicClient implements Client over the Anthropic Messages API.
// SDK retries are disabled: a failed call surfaces immediately.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

type anthropicConfig struct {
	apiKey    string
	baseURL   string
	model     string
	maxTokens int
	http      *http.Client
}

// AnthropicOption configures NewAnthropicClient.
type AnthropicOption func(*anthropicConfig)

// WithAPIKey sets the API key. Without it the SDK reads ANTHROPIC_API_KEY.
func WithAPIKey(key string) AnthropicOption {
	return func(c *anthropicConfig) { c.apiKey = key }
}

// WithBaseURL points the client at another endpoint (proxies, tests).
func WithBaseURL(url string) AnthropicOption {
	return func(c *anthropicConfig) { c.baseURL = url }
}

// WithModel sets the default model.
func WithModel(model string) AnthropicOption {
	return func(c *anthropicConfig) { c.model = model }
}

// WithMaxTokens sets the default output token cap.
func WithMaxTokens(n int) AnthropicOption {
	return func(c *anthropicConfig) { c.maxTokens = n }
}

// WithHTTPClient sets the transport used by the SDK.
func WithHTTPClient(hc *http.Client) AnthropicOption {
	return func(c *anthropicConfig) { c.http = hc }
}

// NewAnthropicClient creates a client for the Anthropic API.
func NewAnthropicClient(opts ...AnthropicOption) *AnthropicClient {
	cfg := anthropicConfig{
		model:     DefaultModel,
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	reqOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(cfg.apiKey))
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.http != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(cfg.http))
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(reqOpts...),
		model:     cfg.model,
		maxTokens: cfg.maxTokens,
	}
}

// Complete implements Client.
func (c *AnthropicClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	msgs, err := toMessageParams(req.Messages)
	if err != nil {
		return nil, NewError("complete", err, false)
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(firstNonEmpty(req.Model, c.model)),
		MaxTokens:   int64(firstPositive(req.MaxTokens, c.maxTokens)),
		Temperature: anthropic.Float(req.Temperature),
		Messages:    msgs,
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewError("complete", ctx.Err(), false)
		}
		return nil, NewError("complete", err, isRetryableStatus(err))
	}

	resp := &CompletionResponse{
		Content:    make([]ContentBlock, 0, len(msg.Content)),
		Model:      string(msg.Model),
		StopReason: string(msg.StopReason),
		Duration:   time.Since(start),
		Usage: TokenUsage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
			TotalTokens:  int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}
	for _, block := range msg.Content {
		resp.Content = append(resp.Content, ContentBlock{Type: block.Type, Text: block.Text})
	}
	return resp, nil
}

func toMessageParams(msgs []Message) ([]anthropic.MessageParam, error) {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for i, m := range msgs {
		block := anthropic.NewTextBlock(m.Content)
		switch m.Role {
		case RoleUser:
			out = append(out, anthropic.NewUserMessage(block))
		case RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(block))
		default:
			return nil, fmt.Errorf("message %d: unsupported role %q", i, m.Role)
		}
	}
	return out, nil
}

// isRetryableStatus reports rate limiting, overload and server errors.
func isRetryableStatus(err error) bool {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch {
	case apiErr.StatusCode == http.StatusTooManyRequests:
		return true
	case apiErr.StatusCode >= 500:
		return true
	}
	return false
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstPositive(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}
