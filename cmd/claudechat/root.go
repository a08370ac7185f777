package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/randalmurphal/flowchat/pkg/chat"
	"github.com/randalmurphal/flowchat/pkg/chat/console"
	"github.com/randalmurphal/flowchat/pkg/chat/logging"
	"github.com/randalmurphal/flowchat/pkg/flowgraph"
	"github.com/randalmurphal/flowchat/pkg/flowgraph/checkpoint"
	"github.com/randalmurphal/flowchat/pkg/flowgraph/llm"
)

const defaultWidth = 80

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "claudechat",
		Short:         "Chat with Claude in the terminal",
		Long:          "claudechat starts a conversation with Claude. Type 'exit' to leave.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a := app{in: os.Stdin, out: os.Stdout, logOut: os.Stderr, getenv: os.Getenv}
			return a.run(ctx)
		},
	}
}

// app holds the process streams so run can be driven from tests.
type app struct {
	in     io.Reader
	out    io.Writer
	logOut io.Writer
	getenv func(string) string
}

func (a app) run(ctx context.Context) (err error) {
	if err := chat.LoadEnvFile(".env"); err != nil {
		return err
	}
	settings, err := chat.LoadSettings(a.getenv)
	if err != nil {
		return err
	}

	logger := logging.NewWriter(a.logOut, settings.LogLevel)
	slog.SetDefault(logger)

	apiKey, err := chat.RequireAPIKey(a.getenv)
	if err != nil {
		return err
	}

	tel, err := setupTelemetry(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer func() {
		if serr := tel.Shutdown(context.WithoutCancel(ctx)); serr != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", serr.Error()))
		}
	}()

	clientOpts := []llm.AnthropicOption{
		llm.WithAPIKey(apiKey),
		llm.WithModel(settings.Model.Model),
		llm.WithMaxTokens(settings.Model.MaxTokens),
	}
	if settings.BaseURL != "" {
		clientOpts = append(clientOpts, llm.WithBaseURL(settings.BaseURL))
	}
	client := llm.NewAnthropicClient(clientOpts...)

	store, err := openStore(settings.Checkpoint)
	if err != nil {
		return err
	}
	if store != nil {
		defer func() {
			err = errors.Join(err, store.Close())
		}()
	}

	input := console.NewLineReader(a.in, a.out)
	render, banner := a.presentation(settings, logger)

	modelCfg := settings.Model
	var runOpts []flowgraph.RunOption
	if tel.Metrics() != nil {
		modelCfg.Metrics = tel.Metrics()
		runOpts = append(runOpts, flowgraph.WithMetrics(true))
	}
	if tel.Tracing() {
		runOpts = append(runOpts, flowgraph.WithTracing(true))
	}

	graph, err := chat.BuildGraph(chat.GraphConfig{
		Client: client,
		Model:  modelCfg,
		Input:  input,
		Output: a.out,
		Render: render,
	})
	if err != nil {
		return fmt.Errorf("build graph: %w", err)
	}

	d := &chat.Driver{
		Graph:        graph,
		Input:        input,
		Output:       a.out,
		Client:       client,
		SystemPrompt: settings.SystemPrompt,
		Logger:       logger,
		Banner:       banner,
		Checkpoints:  store,
		RunID:        settings.Checkpoint.ResumeRunID,
		Resume:       settings.Checkpoint.ResumeRunID != "",
		RunOptions:   runOpts,
	}
	return d.Run(ctx)
}

// presentation picks markdown rendering and a colored banner when stdout
// is a terminal.
func (a app) presentation(settings chat.Settings, logger *slog.Logger) (chat.Renderer, func(io.Writer)) {
	f, ok := a.out.(*os.File)
	if !ok || !console.IsTerminal(f) {
		return nil, chat.PrintBanner
	}

	banner := console.Banner(termenv.ColorProfile())
	if !settings.Markdown {
		return nil, banner
	}
	render, err := console.NewMarkdownRenderer(console.Width(f, defaultWidth), "")
	if err != nil {
		logger.Warn("markdown rendering disabled", slog.String("error", err.Error()))
		return nil, banner
	}
	return render, banner
}

func openStore(s chat.CheckpointSettings) (checkpoint.Store, error) {
	if s.Backend == "" {
		return nil, nil
	}
	var redisOpts []checkpoint.RedisOption
	if s.TTL > 0 {
		redisOpts = append(redisOpts, checkpoint.WithRedisTTL(s.TTL))
	}
	store, err := checkpoint.Open(s.Backend, s.Target, redisOpts...)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint store: %w", err)
	}
	return store, nil
}
