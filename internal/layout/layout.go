// Package layout holds the pure cursor-geometry helpers the stream renderer
// relies on: display width under East-Asian wide characters, rows needed to
// show a string at a given terminal width, and splitting a string at its
// last hard newline.
package layout

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// DisplayWidth returns the visible column count of s: ANSI escape sequences
// are ignored and wide (East-Asian) runes count as two columns.
func DisplayWidth(s string) int {
	return runewidth.StringWidth(ansi.Strip(s))
}

// NeedRows returns the number of terminal rows required to display s at the
// given column width. Always at least 1, even for the empty string.
func NeedRows(s string, cols int) int {
	if cols <= 0 {
		cols = 1
	}
	w := DisplayWidth(s)
	if w < 1 {
		w = 1
	}
	return (w + cols - 1) / cols
}

// SplitLineTail splits s at its last hard newline: head is everything up to
// and including that newline's preceding content (without the newline
// itself), tail is the suffix after it. If s has no newline, head is empty
// and tail is s.
func SplitLineTail(s string) (head, tail string) {
	idx := strings.LastIndexByte(s, '\n')
	if idx < 0 {
		return "", s
	}
	return s[:idx], s[idx+1:]
}
