// Package console connects the chat loop to a terminal: a line reader that
// honors context cancellation, a markdown renderer for replies and the
// startup banner.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/randalmurphal/flowchat/pkg/chat"
)

var _ chat.LineSource = (*LineReader)(nil)

// ErrClosed is returned by Prompt after Close.
var ErrClosed = errors.New("console: line reader closed")

type readResult struct {
	line string
	err  error
}

// LineReader reads lines from an input stream. A single goroutine pumps
// the stream into a channel so Prompt can return on cancellation while a
// read is still pending.
type LineReader struct {
	in  *bufio.Reader
	out io.Writer

	lines     chan readResult
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

// NewLineReader reads from in and writes prompts to out.
func NewLineReader(in io.Reader, out io.Writer) *LineReader {
	if out == nil {
		out = io.Discard
	}
	return &LineReader{
		in:    bufio.NewReader(in),
		out:   out,
		lines: make(chan readResult),
		done:  make(chan struct{}),
	}
}

// Prompt implements chat.LineSource.
func (r *LineReader) Prompt(ctx context.Context, label string) (string, error) {
	select {
	case <-r.done:
		return "", ErrClosed
	default:
	}
	r.startOnce.Do(func() { go r.pump() })

	if label != "" {
		if _, err := fmt.Fprint(r.out, label); err != nil {
			return "", fmt.Errorf("write prompt: %w", err)
		}
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-r.done:
		return "", ErrClosed
	case res, ok := <-r.lines:
		if !ok {
			return "", io.EOF
		}
		return res.line, res.err
	}
}

// Close stops delivery of further lines. Safe to call more than once.
// A read already blocked on the underlying stream is abandoned.
func (r *LineReader) Close() error {
	r.closeOnce.Do(func() { close(r.done) })
	return nil
}

func (r *LineReader) pump() {
	defer close(r.lines)
	for {
		text, err := r.in.ReadString('\n')
		if text != "" {
			if !r.send(readResult{line: strings.TrimRight(text, "\r\n")}) {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.send(readResult{err: fmt.Errorf("read input: %w", err)})
			}
			return
		}
	}
}

func (r *LineReader) send(res readResult) bool {
	select {
	case r.lines <- res:
		return true
	case <-r.done:
		return false
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// Width returns the terminal width of f, or fallback when it is not a
// terminal.
func Width(f *os.File, fallback int) int {
	if !IsTerminal(f) {
		return fallback
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}
