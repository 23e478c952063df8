// Package editorsurface wraps peterh/liner as the REPL's line editor. Tab
// completion goes through liner's completer hook, and an external-$EDITOR
// escape hatch is provided for the ".edit" command. No Shift-BackTab or
// Ctrl-Enter binding is installed: liner's own emacs-like keys are all there is.
package editorsurface

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/x/editor"
	"github.com/peterh/liner"

	"github.com/cortexcli/chatrepl/internal/abort"
	"github.com/cortexcli/chatrepl/internal/replcmd"
)

// Keymap records the configured editing mode. Both modes ride liner's
// emacs-like editing; the value is stored on the Editor but changes no
// binding or help text (see DESIGN.md).
type Keymap string

const (
	KeymapEmacs Keymap = "emacs"
	KeymapVi    Keymap = "vi"
)

// Editor is the line-editor surface ReplController reads submissions from.
type Editor struct {
	line   *liner.State
	keymap Keymap
	state  func() replcmd.ReplState
}

// New constructs an Editor backed by a fresh liner.State, wiring
// completion to the command table filtered by stateFn's current ReplState.
func New(keymap Keymap, stateFn func() replcmd.ReplState) *Editor {
	l := liner.NewLiner()
	l.SetCtrlCAborts(true)
	l.SetMultiLineMode(true)

	e := &Editor{line: l, keymap: keymap, state: stateFn}
	l.SetCompleter(e.complete)
	return e
}

func (e *Editor) complete(line string) []string {
	cmds := replcmd.FilterCommands(line, e.state())
	out := make([]string, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, c.Name)
	}
	return out
}

// ReadLine reads one submission. A prior completed submission is appended
// to history. liner.ErrPromptAborted maps to Ctrl-C, io.EOF to Ctrl-D,
// matching the REPL main loop's step 3/4/5 dispatch.
func (e *Editor) ReadLine(prompt string, sig *abort.Signal) (string, error) {
	line, err := e.line.Prompt(prompt)
	switch {
	case err == nil:
		e.line.AppendHistory(line)
		return line, nil
	case errors.Is(err, liner.ErrPromptAborted):
		sig.SetCtrlC()
		return "", err
	case errors.Is(err, io.EOF):
		sig.SetCtrlD()
		return "", err
	default:
		return "", err
	}
}

// Edit satisfies repl.Editor's external-editor hook by delegating to
// OpenExternalEditor. liner's Prompt() owns the terminal while reading a
// line and exposes no binding for an in-line Ctrl-O keystroke (see
// DESIGN.md), so this is reached via the ".edit" REPL command instead.
func (e *Editor) Edit(initial string) (string, error) {
	return OpenExternalEditor(initial)
}

// OpenExternalEditor invokes $EDITOR on a temp file seeded with initial,
// returning the edited contents. Used by the ".edit" command.
func OpenExternalEditor(initial string) (string, error) {
	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("chatrepl-%d.txt", time.Now().Unix()))
	if err := os.WriteFile(tmpPath, []byte(initial), 0o600); err != nil {
		return "", fmt.Errorf("editorsurface: write temp file: %w", err)
	}
	defer os.Remove(tmpPath)

	cmd, err := editor.Cmd("chatrepl", tmpPath)
	if err != nil {
		return "", fmt.Errorf("editorsurface: resolve editor command: %w", err)
	}
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("editorsurface: run editor: %w", err)
	}

	data, err := os.ReadFile(tmpPath)
	if err != nil {
		return "", fmt.Errorf("editorsurface: read back temp file: %w", err)
	}
	return string(data), nil
}

// Close releases liner's terminal state.
func (e *Editor) Close() error { return e.line.Close() }
