// Package replcmd recognises dotted REPL commands and multi-line fences, and
// filters the static command table against the caller's current state for
// completion.
package replcmd

// ReplState is the pair of booleans every command's validity is judged
// against: whether a role is currently active and whether a session is
// currently open.
type ReplState struct {
	InRole    bool
	InSession bool
}

// quadrant picks the single bit of StateMask that exactly matches s.
func (s ReplState) quadrant() StateMask {
	switch {
	case s.InRole && s.InSession:
		return maskInRoleInSession
	case s.InRole && !s.InSession:
		return maskInRoleNoSession
	case !s.InRole && s.InSession:
		return maskNoRoleInSession
	default:
		return maskNoRoleNoSession
	}
}

// StateMask is a union of the four (in_role, in_session) quadrants a command
// is valid in.
type StateMask uint8

const (
	maskInRoleInSession StateMask = 1 << iota
	maskInRoleNoSession
	maskNoRoleInSession
	maskNoRoleNoSession
)

// Named, coarser masks used by the command table.
const (
	MaskAll            = maskInRoleInSession | maskInRoleNoSession | maskNoRoleInSession | maskNoRoleNoSession
	MaskInRole         = maskInRoleInSession | maskInRoleNoSession
	MaskInSession      = maskInRoleInSession | maskNoRoleInSession
	MaskNotInSession   = maskInRoleNoSession | maskNoRoleNoSession
	MaskAbleChangeRole = MaskAll
)

// Satisfies reports whether state s lies within mask m.
func (m StateMask) Satisfies(s ReplState) bool {
	return m&s.quadrant() != 0
}
