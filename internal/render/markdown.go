package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
)

// MarkdownSink streams raw text as a live preview and re-renders the
// complete turn as styled markdown on Finalize.
type MarkdownSink struct {
	w        io.Writer
	renderer *glamour.TermRenderer
	buf      strings.Builder
}

// NewMarkdownSink creates a sink writing to w.
func NewMarkdownSink(w io.Writer) (*MarkdownSink, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}
	return &MarkdownSink{w: w, renderer: renderer}, nil
}

// Append writes the chunk through as a live preview and buffers it for the
// final render.
func (s *MarkdownSink) Append(text string) {
	s.buf.WriteString(text)
	fmt.Fprint(s.w, text)
}

// Finalize renders the accumulated markdown and writes the styled form below
// the preview.
func (s *MarkdownSink) Finalize() error {
	if s.buf.Len() == 0 {
		return nil
	}
	out, err := s.renderer.Render(s.buf.String())
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	fmt.Fprint(s.w, "\n"+out)
	return nil
}

// Teardown abandons any partial preview.
func (s *MarkdownSink) Teardown() {
	if s.buf.Len() > 0 {
		fmt.Fprintln(s.w)
	}
	s.buf.Reset()
}
