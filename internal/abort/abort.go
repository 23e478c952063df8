// Package abort provides a shared cancellation flag observed by the stream
// renderer, the model client, and the REPL loop.
package abort

import "sync/atomic"

const (
	flagCtrlC uint32 = 1 << iota
	flagCtrlD
)

// Signal is a concurrency-safe cancellation flag with distinct Ctrl-C
// (cancel current reply, REPL continues) and Ctrl-D (exit REPL) states.
// A single atomic word is sufficient: there is no signal/wait semantics,
// only polling observers.
type Signal struct {
	bits atomic.Uint32
}

// New returns a Signal in its initial, unset state.
func New() *Signal {
	return &Signal{}
}

// SetCtrlC idempotently marks the current reply as user-interrupted.
func (s *Signal) SetCtrlC() {
	s.bits.Or(flagCtrlC)
}

// SetCtrlD idempotently marks the REPL for exit.
func (s *Signal) SetCtrlD() {
	s.bits.Or(flagCtrlD)
}

// Aborted reports whether either Ctrl-C or Ctrl-D has been set since the
// last Reset.
func (s *Signal) Aborted() bool {
	return s.bits.Load() != 0
}

// AbortedCtrlD reports whether Ctrl-D specifically has been set.
func (s *Signal) AbortedCtrlD() bool {
	return s.bits.Load()&flagCtrlD != 0
}

// Reset clears both flags. The REPL calls this once before each
// user-initiated request; reset happens-before the next read_line.
func (s *Signal) Reset() {
	s.bits.Store(0)
}
