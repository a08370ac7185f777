package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/randalmurphal/flowchat/pkg/flowgraph"
	"github.com/randalmurphal/flowchat/pkg/flowgraph/checkpoint"
	"github.com/randalmurphal/flowchat/pkg/flowgraph/llm"
)

// Banner lines printed before the first prompt.
const (
	BannerTitle = "Claude Chat CLI"
	BannerHint  = "Type 'exit' to end the conversation."
)

// Driver runs one conversation.
type Driver struct {
	Graph  *flowgraph.CompiledGraph[State]
	Input  LineSource
	Output io.Writer

	// Client is exposed to nodes through flowgraph.Context.LLM.
	Client llm.Client

	SystemPrompt string
	Logger       *slog.Logger

	// Banner prints the startup banner. Nil prints the plain text banner.
	Banner func(w io.Writer)

	// Checkpoints, when set, receives a checkpoint after every node.
	Checkpoints checkpoint.Store
	// RunID names the conversation. Empty generates one.
	RunID string
	// Resume continues RunID from its latest checkpoint instead of starting fresh.
	Resume bool

	// RunOptions are appended to the driver's own run options.
	RunOptions []flowgraph.RunOption
}

// Run prints the banner and runs the graph until the user exits.
// The input source is closed on every return path. Exiting and
// cancellation return nil; any other failure is logged and returned.
func (d *Driver) Run(ctx context.Context) (err error) {
	if d.Input == nil {
		return errors.New("chat: driver has no input source")
	}
	defer func() {
		if cerr := d.Input.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close input: %w", cerr)
		}
	}()
	if d.Graph == nil {
		return errors.New("chat: driver has no graph")
	}

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	out := d.Output
	if out == nil {
		out = io.Discard
	}

	if d.Banner != nil {
		d.Banner(out)
	} else {
		PrintBanner(out)
	}

	ctxOpts := []flowgraph.ContextOption{flowgraph.WithLogger(logger)}
	if d.Client != nil {
		ctxOpts = append(ctxOpts, flowgraph.WithLLM(d.Client))
	}
	if d.Checkpoints != nil {
		ctxOpts = append(ctxOpts, flowgraph.WithCheckpointer(d.Checkpoints))
	}
	if d.RunID != "" {
		ctxOpts = append(ctxOpts, flowgraph.WithContextRunID(d.RunID))
	}
	fgCtx := flowgraph.NewContext(ctx, ctxOpts...)
	runID := fgCtx.RunID()

	opts := []flowgraph.RunOption{
		flowgraph.WithUnboundedIterations(),
		flowgraph.WithRunID(runID),
		flowgraph.WithObservabilityLogger(logger),
	}
	if d.Checkpoints != nil {
		opts = append(opts, flowgraph.WithCheckpointing(d.Checkpoints))
	}
	opts = append(opts, d.RunOptions...)

	if d.Resume {
		if d.Checkpoints == nil {
			return errors.New("chat: resume requires a checkpoint store")
		}
		logger.Info("resuming conversation", slog.String("run_id", runID))
		_, err = d.Graph.Resume(fgCtx, d.Checkpoints, runID, flowgraph.WithResumeRunOptions(opts...))
	} else {
		_, err = d.Graph.Run(fgCtx, NewState(d.SystemPrompt), opts...)
	}

	switch {
	case err == nil, errors.Is(err, ErrExit):
		return nil
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		logger.Info("conversation interrupted", slog.String("run_id", runID))
		return nil
	default:
		logger.Error("conversation failed", slog.String("run_id", runID), slog.String("error", err.Error()))
		return err
	}
}

// PrintBanner writes the plain text banner.
func PrintBanner(w io.Writer) {
	fmt.Fprintln(w, BannerTitle)
	fmt.Fprintln(w, BannerHint)
	fmt.Fprintln(w)
}
