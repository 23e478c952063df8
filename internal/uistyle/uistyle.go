// Package uistyle supplies the error/hint lipgloss styles the REPL's outer
// loop and command errors render through.
package uistyle

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Theme is the fixed palette; unlike the teacher's multi-theme setup this
// module only ever needs the handful of colors error/hint rendering uses.
type Theme struct {
	Error lipgloss.Color
	Hint  lipgloss.Color
	Muted lipgloss.Color
}

// defaultTheme picks a reduced-palette fallback on ANSI256 terminals, the
// way the teacher's own chat message renderer branches on
// lipgloss.ColorProfile() to pick terminal-safe colors.
func defaultTheme() Theme {
	if lipgloss.ColorProfile() == termenv.ANSI256 {
		return Theme{
			Error: lipgloss.Color("203"),
			Hint:  lipgloss.Color("221"),
			Muted: lipgloss.Color("245"),
		}
	}
	return Theme{
		Error: lipgloss.Color("#fb4934"),
		Hint:  lipgloss.Color("#fabd2f"),
		Muted: lipgloss.Color("#928374"),
	}
}

// Styles renders error text, hints, and plain dimmed text. When the target
// is not a terminal, renders produce unstyled text (lipgloss detects this
// itself via its own renderer).
type Styles struct {
	Error lipgloss.Style
	Hint  lipgloss.Style
	Muted lipgloss.Style
}

// New builds Styles bound to out, auto-detecting color support the way the
// renderer does for any lipgloss.NewRenderer target.
func New(out *os.File) *Styles {
	r := lipgloss.NewRenderer(out)
	theme := defaultTheme()
	return &Styles{
		Error: r.NewStyle().Foreground(theme.Error),
		Hint:  r.NewStyle().Foreground(theme.Hint),
		Muted: r.NewStyle().Foreground(theme.Muted),
	}
}

// RenderError formats an InputError/ConfigError/ModelError per §7's
// propagation policy: red when highlighting is on, followed by a blank
// line by the caller.
func (s *Styles) RenderError(err error) string {
	return s.Error.Render(err.Error())
}

// RenderHint formats a short informational line, e.g. "sending N tokens"
// or the Ctrl-C cancellation notice.
func (s *Styles) RenderHint(msg string) string {
	return s.Hint.Render(msg)
}

// IsTerminal reports whether fd is attached to a TTY, used to decide
// whether FatalInitError output gets ANSI red on stderr.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
