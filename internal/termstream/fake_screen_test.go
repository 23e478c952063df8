package termstream

import (
	"strings"
	"time"
)

// fakeScreen simulates a terminal grid so the chunk-apply algorithm's
// geometry invariants can be asserted deterministically, without a real
// TTY. Cursor motion methods behave like the real VT100 semantics they
// stand in for: '\n' advances the row without resetting the column (raw
// mode, no auto-CR), '\r' returns to column 0, long lines auto-wrap at the
// configured width, and ScrollUp does not itself move the cursor. CSI escape
// sequences written through Write (such as the spinner's line erase) are
// consumed without being drawn.
type fakeScreen struct {
	cols     int
	grid     [][]rune
	row, col int
	keys     []Key
}

func newFakeScreen(cols int) *fakeScreen {
	return &fakeScreen{cols: cols, grid: [][]rune{{}}}
}

func (f *fakeScreen) ensureRow(r int) {
	for len(f.grid) <= r {
		f.grid = append(f.grid, []rune{})
	}
}

func (f *fakeScreen) putRune(r rune) {
	f.ensureRow(f.row)
	line := f.grid[f.row]
	for len(line) <= f.col {
		line = append(line, ' ')
	}
	line[f.col] = r
	f.grid[f.row] = line
	f.col++
	if f.col >= f.cols {
		f.row++
		f.col = 0
		f.ensureRow(f.row)
	}
}

func (f *fakeScreen) Write(p []byte) (int, error) {
	rs := []rune(string(p))
	for i := 0; i < len(rs); i++ {
		switch r := rs[i]; {
		case r == '\n':
			f.row++
			f.ensureRow(f.row)
		case r == '\r':
			f.col = 0
		case r == '\x1b' && i+1 < len(rs) && rs[i+1] == '[':
			// Consume a CSI sequence up to its final byte without drawing it.
			for i += 2; i < len(rs) && (rs[i] < 0x40 || rs[i] > 0x7e); i++ {
			}
		default:
			f.putRune(r)
		}
	}
	return len(p), nil
}

func (f *fakeScreen) Flush() error { return nil }
func (f *fakeScreen) Columns() int { return f.cols }

func (f *fakeScreen) CursorPosition() (row, col int, err error) {
	return f.row, f.col, nil
}

func (f *fakeScreen) MoveUp(n int) error {
	f.row -= n
	if f.row < 0 {
		f.row = 0
	}
	return nil
}

func (f *fakeScreen) ColumnStart() error {
	f.col = 0
	return nil
}

func (f *fakeScreen) ScrollUp(n int) error {
	// Real SU shifts content without moving the cursor; the fake's grid is
	// unbounded so there is nothing to shift.
	return nil
}

func (f *fakeScreen) EraseToEnd() error {
	f.ensureRow(f.row)
	line := f.grid[f.row]
	for i := f.col; i < len(line); i++ {
		line[i] = ' '
	}
	f.grid[f.row] = line
	for r := f.row + 1; r < len(f.grid); r++ {
		f.grid[r] = []rune{}
	}
	return nil
}

func (f *fakeScreen) Backward(n int) error {
	f.col -= n
	if f.col < 0 {
		f.col = 0
	}
	return nil
}

func (f *fakeScreen) PollKey(timeout time.Duration) Key {
	if len(f.keys) == 0 {
		return KeyNone
	}
	k := f.keys[0]
	f.keys = f.keys[1:]
	return k
}

func (f *fakeScreen) pushKey(k Key) { f.keys = append(f.keys, k) }

// image renders the grid as newline-joined trimmed rows for assertions.
func (f *fakeScreen) image() string {
	lines := make([]string, 0, len(f.grid))
	for _, row := range f.grid {
		lines = append(lines, strings.TrimRight(string(row), " "))
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// identityRenderer returns input unchanged, for tests that only care about
// cursor geometry and not styling.
type identityRenderer struct{}

func (identityRenderer) Render(completed string) (string, error) { return completed, nil }
func (identityRenderer) RenderLine(partial string) (string, error) { return partial, nil }
