// Package chat implements a terminal chatbot as a two-node cycle on flowgraph.
//
// The "tools" node shows the latest reply and reads the next user line; the
// "model" node sends the transcript to an LLM and records the answer. A
// constant router sends control from model back to tools. The loop ends
// when the user types "exit" (or input ends), which halts the run with
// ErrExit.
//
// Steps are plain functions over State that return an Update:
//
//	upd := chat.ModelStep(ctx, client, cfg, state)
//	state = state.Apply(upd)
//
// Graph wiring, logging and checkpointing live in BuildGraph and Driver.
package chat

import "slices"

// Role identifies the author of a transcript entry.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// State is the value threaded through the graph.
type State struct {
	// Messages is the transcript. The first entry is the system prompt.
	Messages []Message `json:"messages"`

	// PendingInput holds a captured user line until the model step consumes it.
	PendingInput string `json:"pending_input,omitempty"`

	// LastReply is the most recent assistant output (or the apology). Display only.
	LastReply string `json:"last_reply,omitempty"`
}

// NewState returns the initial state: one system message and nothing pending.
func NewState(systemPrompt string) State {
	return State{
		Messages: []Message{{Role: RoleSystem, Content: systemPrompt}},
	}
}

// SystemPrompt returns the content of the first system message and whether
// one exists.
func (s State) SystemPrompt() (string, bool) {
	for _, m := range s.Messages {
		if m.Role == RoleSystem {
			return m.Content, true
		}
	}
	return "", false
}

// Update is a partial state change. Nil fields leave the state untouched.
type Update struct {
	Messages     *[]Message
	PendingInput *string
	LastReply    *string
}

// Apply returns a copy of s with u merged in.
func (s State) Apply(u Update) State {
	next := s
	next.Messages = slices.Clone(s.Messages)
	if u.Messages != nil {
		next.Messages = slices.Clone(*u.Messages)
	}
	if u.PendingInput != nil {
		next.PendingInput = *u.PendingInput
	}
	if u.LastReply != nil {
		next.LastReply = *u.LastReply
	}
	return next
}

// IsZero reports whether u changes nothing.
func (u Update) IsZero() bool {
	return u.Messages == nil && u.PendingInput == nil && u.LastReply == nil
}

func ptr[T any](v T) *T { return &v }
