package chat

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
)

// scriptedSource replays fixed lines, then reports io.EOF.
type scriptedSource struct {
	mu      sync.Mutex
	lines   []string
	prompts []string
	closed  int
	err     error
}

func newScriptedSource(lines ...string) *scriptedSource {
	return &scriptedSource{lines: lines}
}

func (s *scriptedSource) Prompt(ctx context.Context, label string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, label)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.err != nil {
		return "", s.err
	}
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptedSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *scriptedSource) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// captureLogger returns a text logger writing into the returned buffer.
func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func seeded(system, pending string) State {
	s := NewState(system)
	s.PendingInput = pending
	return s
}
