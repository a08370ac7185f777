package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/randalmurphal/flowchat/pkg/flowgraph"
	fgerrors "github.com/randalmurphal/flowchat/pkg/flowgraph/errors"
	"github.com/randalmurphal/flowchat/pkg/flowgraph/llm"
	"github.com/randalmurphal/flowchat/pkg/flowgraph/observability"
)

// Apology replaces the reply when a completion fails.
const Apology = "Sorry, I encountered an error while generating a response."

// DefaultSystemPrompt is used when the transcript carries no system message.
const DefaultSystemPrompt = "You are a helpful AI assistant. Respond to the user's questions conversationally and accurately."

// ModelConfig holds the completion parameters for ModelStep.
type ModelConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int

	// DefaultSystemPrompt is sent when the transcript has no system message.
	DefaultSystemPrompt string

	// Metrics receives one RecordCompletion per call. Nil disables recording.
	Metrics observability.MetricsRecorder
}

// DefaultModelConfig returns the stock completion parameters.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Model:               llm.DefaultModel,
		Temperature:         0,
		MaxTokens:           llm.DefaultMaxTokens,
		DefaultSystemPrompt: DefaultSystemPrompt,
	}
}

// ModelStep sends the pending input and transcript to client and records the
// reply. With nothing pending it clears the per-turn fields and makes no call.
//
// Completion failures never propagate: the transcript is left as it was and
// LastReply is set to Apology.
func ModelStep(ctx context.Context, client llm.Client, cfg ModelConfig, s State) Update {
	logger := loggerFrom(ctx)
	logger.Info("in node", slog.String("node", NodeModel))

	if s.PendingInput == "" {
		return Update{LastReply: ptr(""), PendingInput: ptr("")}
	}

	system, ok := s.SystemPrompt()
	if !ok {
		system = cfg.DefaultSystemPrompt
	}

	var (
		head       []Message
		transcript []Message
		reqMsgs    []llm.Message
	)
	for _, m := range s.Messages {
		if m.Role == RoleSystem {
			head = append(head, m)
			continue
		}
		transcript = append(transcript, m)
		reqMsgs = append(reqMsgs, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
	}
	transcript = append(transcript, Message{Role: RoleUser, Content: s.PendingInput})
	reqMsgs = append(reqMsgs, llm.Message{Role: llm.RoleUser, Content: s.PendingInput})

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}

	start := time.Now()
	resp, err := client.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: system,
		Messages:     reqMsgs,
		Model:        cfg.Model,
		MaxTokens:    cfg.MaxTokens,
		Temperature:  cfg.Temperature,
	})
	elapsed := time.Since(start)
	if err != nil {
		observability.LogCompletionError(logger, cfg.Model, fgerrors.Categorize(err).String(), err,
			float64(elapsed.Milliseconds()))
		metrics.RecordCompletion(ctx, cfg.Model, 0, 0, elapsed, err)
		return Update{LastReply: ptr(Apology), PendingInput: ptr("")}
	}

	model := resp.Model
	if model == "" {
		model = cfg.Model
	}
	observability.LogCompletion(logger, model, resp.Usage.InputTokens, resp.Usage.OutputTokens,
		float64(elapsed.Milliseconds()))
	metrics.RecordCompletion(ctx, model, resp.Usage.InputTokens, resp.Usage.OutputTokens, elapsed, nil)

	reply := resp.Text()
	msgs := make([]Message, 0, len(head)+len(transcript)+1)
	msgs = append(msgs, head...)
	msgs = append(msgs, transcript...)
	msgs = append(msgs, Message{Role: RoleAssistant, Content: reply})

	return Update{
		Messages:     &msgs,
		LastReply:    ptr(reply),
		PendingInput: ptr(""),
	}
}

// loggerFrom returns the node logger when ctx is a flowgraph.Context.
func loggerFrom(ctx context.Context) *slog.Logger {
	if fc, ok := ctx.(flowgraph.Context); ok && fc.Logger() != nil {
		return fc.Logger()
	}
	return slog.Default()
}
