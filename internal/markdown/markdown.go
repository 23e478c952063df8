// Package markdown adapts glamour's TermRenderer to the render/render_line
// contract the stream renderer depends on: render(completed) returns styled
// text for a sequence of complete lines with no dangling state; render_line
// renders a possibly-incomplete markdown suffix and must be safe to call
// repeatedly with a growing prefix, since the caller erases and reprints.
// Neither method emits cursor-positioning escapes, only SGR styling.
package markdown

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Renderer wraps a glamour.TermRenderer bound to a fixed terminal width.
type Renderer struct {
	tr       *glamour.TermRenderer
	baseOpts []glamour.TermRendererOption
	width    int
}

// New creates a Renderer styled for the given terminal width.
func New(width int) (*Renderer, error) {
	base := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	tr, err := glamour.NewTermRenderer(append(base, glamour.WithWordWrap(width))...)
	if err != nil {
		return nil, err
	}
	return &Renderer{tr: tr, baseOpts: base, width: width}, nil
}

// Render styles a sequence of complete lines as a finished block. The
// result, written followed by a newline, leaves no dangling renderer state.
func (r *Renderer) Render(completed string) (string, error) {
	out, err := r.tr.Render(completed)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}

// RenderLine renders partial text as best-effort styled markdown. It is
// always safe to call again with a longer prefix of the same logical line.
func (r *Renderer) RenderLine(partial string) (string, error) {
	if partial == "" {
		return "", nil
	}
	out, err := r.tr.Render(partial)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}

// Resize rebuilds the underlying renderer for a new terminal width. The
// caller is responsible for re-rendering and redrawing existing content.
func (r *Renderer) Resize(width int) error {
	tr, err := glamour.NewTermRenderer(append(r.baseOpts, glamour.WithWordWrap(width))...)
	if err != nil {
		return err
	}
	r.tr = tr
	r.width = width
	return nil
}
