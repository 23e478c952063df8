// Package termstream is the streaming markdown renderer: the raw-mode
// terminal driver that owns cursor geometry while an unbounded, chunked
// token stream is rendered incrementally as markdown.
package termstream

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/cortexcli/chatrepl/internal/abort"
	"github.com/cortexcli/chatrepl/internal/layout"
	"github.com/cortexcli/chatrepl/internal/replevents"
	"github.com/cortexcli/chatrepl/internal/spinner"
)

// ErrUnterminatedStream is returned when the reply-event channel closes
// without ever producing a Done event. Source treated this as a no-op that
// spins until the next poll; here it is surfaced as an explicit error so the
// REPL can report abnormal termination instead of going silent.
var ErrUnterminatedStream = errors.New("termstream: reply stream closed without Done")

// MarkdownRenderer is the render/render_line contract the chunk-apply
// algorithm depends on. Implementations must not emit cursor-positioning
// escapes, only SGR styling, and render_line must be safe to call
// repeatedly with a growing prefix.
type MarkdownRenderer interface {
	Render(completed string) (string, error)
	RenderLine(partial string) (string, error)
}

// renderState is the invariant-bearing state between chunk applications:
// buffer is the tail of text since the last flushed hard newline, and
// bufferRows is how many terminal rows its rendered form currently occupies.
type renderState struct {
	buffer     string
	bufferRows int
	columns    int
}

// MarkdownStream is the raw-mode entry point: it renders rx as markdown onto
// scr until Done, cancellation, or an unterminated-stream error, keeping the
// terminal cursor consistent with the visible layout throughout.
func MarkdownStream(ctx context.Context, scr Screen, rx <-chan replevents.Event, mr MarkdownRenderer, sig *abort.Signal) error {
	st := &renderState{columns: scr.Columns(), bufferRows: 1}

	sp := spinner.Start(flushingWriter{scr})
	spinnerArmed := true
	stopSpinner := func() {
		if spinnerArmed {
			sp.Stop()
			spinnerArmed = false
		}
	}
	defer stopSpinner()

	for {
		if sig.Aborted() {
			return nil
		}

		batch := replevents.Gather(ctx, rx)
		if batch.Closed {
			return ErrUnterminatedStream
		}

		if !batch.Empty() {
			stopSpinner()
		}

		if batch.HasText {
			if err := applyChunk(scr, mr, st, batch.Text); err != nil {
				return err
			}
		}
		if batch.Done {
			return nil
		}

		switch scr.PollKey(25 * time.Millisecond) {
		case KeyCtrlC:
			sig.SetCtrlC()
			return nil
		case KeyCtrlD:
			sig.SetCtrlD()
			return nil
		}
	}
}

// RawStream is the non-TTY fallback: verbatim pass-through with no cursor
// math and no markdown processing.
func RawStream(ctx context.Context, w io.Writer, rx <-chan replevents.Event, sig *abort.Signal) error {
	for {
		if sig.Aborted() {
			return nil
		}
		select {
		case ev, ok := <-rx:
			if !ok {
				return ErrUnterminatedStream
			}
			if ev.Done {
				return nil
			}
			if ev.Text != "" {
				if _, err := io.WriteString(w, ev.Text); err != nil {
					return err
				}
				if f, ok := w.(interface{ Flush() error }); ok {
					if err := f.Flush(); err != nil {
						return err
					}
				}
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// applyChunk is the chunk-apply algorithm of section 4.4.3: given the
// terminal's reported cursor position, reposition to the start of buffer's
// region, erase forward, commit any newly completed block, then render and
// emit the updated partial buffer.
func applyChunk(scr Screen, mr MarkdownRenderer, st *renderState, raw string) error {
	t := strings.ReplaceAll(raw, "\t", "    ")

	row, col, err := scr.CursorPosition()
	if err != nil {
		return err
	}

	// Phantom-line fix: some terminals (notably Kitty) report the cursor on
	// the row after a line that exactly filled the width.
	if col == 0 && row > 0 && layout.DisplayWidth(st.buffer) == st.columns {
		row--
	}

	if err := positionAtBufferStart(scr, row, st.bufferRows); err != nil {
		return err
	}
	if err := scr.EraseToEnd(); err != nil {
		return err
	}

	if strings.Contains(t, "\n") {
		text := st.buffer + t
		head, tail := layout.SplitLineTail(text)
		block, err := mr.Render(head)
		if err != nil {
			return err
		}
		if _, err := printBlock(scr, block); err != nil {
			return err
		}
		st.buffer = tail
	} else {
		st.buffer += t
	}

	out, err := mr.RenderLine(st.buffer)
	if err != nil {
		return err
	}
	if strings.Contains(out, "\n") {
		head2, tail2 := layout.SplitLineTail(out)
		lines, err := printBlock(scr, head2)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(scr, tail2); err != nil {
			return err
		}
		st.bufferRows = lines + layout.NeedRows(tail2, st.columns)
	} else {
		if _, err := io.WriteString(scr, out); err != nil {
			return err
		}
		// need_rows has a floor of 1 for all s, including "": an empty
		// partial line still occupies the row the cursor sits on.
		st.bufferRows = layout.NeedRows(out, st.columns)
	}

	return scr.Flush()
}

// positionAtBufferStart implements step 2 of the chunk-apply algorithm.
func positionAtBufferStart(scr Screen, row, bufferRows int) error {
	if row+1 >= bufferRows {
		if err := scr.MoveUp(bufferRows - 1); err != nil {
			return err
		}
		return scr.ColumnStart()
	}

	n := bufferRows - row - 1
	if err := scr.ScrollUp(n); err != nil {
		return err
	}
	if err := scr.MoveUp(row); err != nil {
		return err
	}
	return scr.ColumnStart()
}

// printBlock emits each newline-separated line of text followed by a
// newline and a move-left-by-columns, compensating for terminals that do
// not reset column on '\n' in raw mode. It returns the number of lines
// printed; the caller accounts for any partial tail separately.
func printBlock(scr Screen, text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	lines := strings.Split(text, "\n")
	n := 0
	for _, line := range lines {
		if _, err := io.WriteString(scr, line); err != nil {
			return n, err
		}
		if _, err := io.WriteString(scr, "\n"); err != nil {
			return n, err
		}
		if err := scr.Backward(scr.Columns()); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// flushingWriter adapts a Screen to a plain io.Writer that flushes after
// every write, for callers (like the spinner) with no cursor-math needs of
// their own.
type flushingWriter struct{ scr Screen }

func (w flushingWriter) Write(p []byte) (int, error) {
	n, err := w.scr.Write(p)
	if err != nil {
		return n, err
	}
	return n, w.scr.Flush()
}
