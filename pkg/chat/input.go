package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/randalmurphal/flowchat/pkg/flowgraph"
)

// ExitCommand ends the conversation when typed on its own (any case).
const ExitCommand = "exit"

// Prompt is shown before each user line.
const Prompt = "You: "

// ErrExit is returned by InputStep when the user leaves. It wraps
// flowgraph.ErrHalt so the engine stops without reporting a failure.
var ErrExit = fmt.Errorf("user exited: %w", flowgraph.ErrHalt)

// LineSource supplies user lines one at a time.
type LineSource interface {
	// Prompt writes label and blocks until a line is read, ctx is done or
	// input ends (io.EOF). The returned line has no trailing newline.
	Prompt(ctx context.Context, label string) (string, error)

	// Close releases the source. Safe to call more than once.
	Close() error
}

// Renderer turns reply text into its display form. A failed render falls
// back to the raw text.
type Renderer func(text string) (string, error)

// InputStep displays the latest reply and reads the next user line.
//
// The exit command and end of input both close src and return ErrExit with
// an empty Update. Any other error from src is returned as is.
func InputStep(ctx context.Context, src LineSource, out io.Writer, render Renderer, s State) (Update, error) {
	logger := loggerFrom(ctx)
	logger.Info("in node", slog.String("node", NodeTools))

	if s.LastReply != "" {
		if _, err := fmt.Fprint(out, "\nAssistant: "+display(render, s.LastReply)+"\n"); err != nil {
			return Update{}, fmt.Errorf("write reply: %w", err)
		}
	}

	line, err := src.Prompt(ctx, Prompt)
	switch {
	case errors.Is(err, io.EOF):
		logger.Debug("input closed")
		return Update{}, closeAndExit(src)
	case err != nil:
		return Update{}, err
	}

	if strings.EqualFold(strings.TrimSpace(line), ExitCommand) {
		return Update{}, closeAndExit(src)
	}
	return Update{PendingInput: ptr(line)}, nil
}

func closeAndExit(src LineSource) error {
	if err := src.Close(); err != nil {
		return errors.Join(ErrExit, fmt.Errorf("close input: %w", err))
	}
	return ErrExit
}

func display(render Renderer, text string) string {
	if render == nil {
		return text
	}
	rendered, err := render(text)
	if err != nil {
		return text
	}
	return strings.TrimSpace(rendered)
}
