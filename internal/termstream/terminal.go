package termstream

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"golang.org/x/term"
)

// Key classifies a single byte read from the keyboard while streaming.
type Key int

const (
	KeyNone Key = iota
	KeyCtrlC
	KeyCtrlD
	KeyOther
)

// Screen is everything StreamRenderer needs from the terminal: cursor
// geometry queries, relative cursor motion, erasing, and non-blocking key
// polling. A real implementation owns raw mode and the stdin byte stream
// exclusively; tests substitute a fake that simulates a grid.
type Screen interface {
	io.Writer
	Flush() error
	Columns() int
	CursorPosition() (row, col int, err error)
	MoveUp(n int) error
	ColumnStart() error
	ScrollUp(n int) error
	EraseToEnd() error
	// Backward moves the cursor left by exactly n columns, clamping at
	// column 0. Terminals that do not reset column on '\n' in raw mode
	// need this after every printed line.
	Backward(n int) error
	PollKey(timeout time.Duration) Key
}

// Terminal is the real Screen: an ANSI terminal in raw mode, with a single
// goroutine reading stdin so cursor-position responses and keystrokes never
// race each other.
type Terminal struct {
	out     *bufio.Writer
	cols    int
	bytesCh chan byte

	fd       int
	oldState *term.State
}

// Open puts fd (normally os.Stdin's descriptor) into raw mode and starts the
// single reader goroutine. The caller must call Close on every exit path,
// including panics and early returns, to guarantee raw mode is released.
func Open(out io.Writer, in io.Reader, fd int, cols int) (*Terminal, error) {
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("enable raw mode: %w", err)
	}

	t := &Terminal{
		out:      bufio.NewWriter(out),
		cols:     cols,
		bytesCh:  make(chan byte, 256),
		fd:       fd,
		oldState: oldState,
	}
	go t.readLoop(in)
	return t, nil
}

func (t *Terminal) readLoop(in io.Reader) {
	buf := make([]byte, 1)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			t.bytesCh <- buf[0]
		}
		if err != nil {
			close(t.bytesCh)
			return
		}
	}
}

// Close restores the terminal's prior mode. Safe to call once; idempotent
// calls after the first are no-ops.
func (t *Terminal) Close() error {
	if t.oldState == nil {
		return nil
	}
	err := term.Restore(t.fd, t.oldState)
	t.oldState = nil
	return err
}

func (t *Terminal) Write(p []byte) (int, error) { return t.out.Write(p) }
func (t *Terminal) Flush() error                { return t.out.Flush() }
func (t *Terminal) Columns() int                { return t.cols }

// CursorPosition issues a Device Status Report query and blocks for the
// terminal's response on the shared stdin byte stream.
func (t *Terminal) CursorPosition() (row, col int, err error) {
	if err := t.Flush(); err != nil {
		return 0, 0, err
	}
	if _, err := io.WriteString(t.out, ansi.RequestCursorPositionReport); err != nil {
		return 0, 0, err
	}
	if err := t.Flush(); err != nil {
		return 0, 0, err
	}

	var sb strings.Builder
	for {
		b, ok := <-t.bytesCh
		if !ok {
			return 0, 0, io.ErrClosedPipe
		}
		if b == 'R' {
			break
		}
		sb.WriteByte(b)
	}

	report := sb.String()
	idx := strings.IndexByte(report, '[')
	if idx < 0 {
		return 0, 0, fmt.Errorf("termstream: malformed cursor position report %q", report)
	}
	parts := strings.SplitN(report[idx+1:], ";", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("termstream: malformed cursor position report %q", report)
	}
	r, err1 := strconv.Atoi(parts[0])
	c, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, fmt.Errorf("termstream: malformed cursor position report %q", report)
	}
	return r - 1, c - 1, nil
}

func (t *Terminal) MoveUp(n int) error {
	if n <= 0 {
		return nil
	}
	_, err := io.WriteString(t.out, ansi.CursorUp(n))
	return err
}

func (t *Terminal) ColumnStart() error {
	_, err := io.WriteString(t.out, ansi.CursorHorizontalAbsolute(1))
	return err
}

func (t *Terminal) ScrollUp(n int) error {
	if n <= 0 {
		return nil
	}
	_, err := io.WriteString(t.out, fmt.Sprintf("\x1b[%dS", n))
	return err
}

func (t *Terminal) Backward(n int) error {
	if n <= 0 {
		return nil
	}
	_, err := io.WriteString(t.out, ansi.CursorLeft(n))
	return err
}

func (t *Terminal) EraseToEnd() error {
	_, err := io.WriteString(t.out, ansi.EraseDisplay(0))
	return err
}

// PollKey waits up to timeout for a single keystroke byte.
func (t *Terminal) PollKey(timeout time.Duration) Key {
	select {
	case b, ok := <-t.bytesCh:
		if !ok {
			return KeyCtrlD
		}
		switch b {
		case 0x03:
			return KeyCtrlC
		case 0x04:
			return KeyCtrlD
		default:
			return KeyOther
		}
	case <-time.After(timeout):
		return KeyNone
	}
}
