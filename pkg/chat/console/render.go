package console

import (
	"fmt"

	"github.com/charmbracelet/glamour"

	"github.com/randalmurphal/flowchat/pkg/chat"
)

// NewMarkdownRenderer renders replies as terminal markdown wrapped at width.
// style is a glamour style name; empty picks one from the terminal background.
func NewMarkdownRenderer(width int, style string) (chat.Renderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}
	return r.Render, nil
}
