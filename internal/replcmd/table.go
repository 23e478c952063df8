package replcmd

// ReplCommand is one row of the immutable, process-lifetime command table:
// its full dotted name, a one-line description for .help, and the state
// mask that gates whether it is offered in completion.
type ReplCommand struct {
	Name        string
	Description string
	Mask        StateMask
}

// commandTable is the static 17-entry table. It never changes after
// process start; FilterCommands only ever reads it.
//
// Some masks are open decisions not pinned down by user-visible behaviour
// alone: .session is offered only outside a session (starting a second one
// without leaving the first has no defined meaning here), .prompt and .role
// are offered in any state since both simply switch the active role.
var commandTable = []ReplCommand{
	{".help", "show this help", MaskAll},
	{".info", "print system information", MaskAll},
	{".info role", "print the active role", MaskInRole},
	{".info session", "print the active session", MaskInSession},
	{".model", "set the active model", MaskAll},
	{".prompt", "define an ad-hoc role from a prompt", MaskAll},
	{".role", "switch role, or ask once under a role", MaskAbleChangeRole},
	{".session", "start a session", MaskNotInSession},
	{".save session", "persist the active session", MaskInSession},
	{".set", "update a configuration key", MaskAll},
	{".copy", "copy the last reply to the clipboard", MaskAll},
	{".file", "ask with attached files", MaskAll},
	{".edit", "compose the next turn in $EDITOR", MaskAll},
	{".clear messages", "erase the active session's messages", MaskInSession},
	{".exit", "leave role, end session, or exit", MaskAll},
	{".exit role", "leave the active role", MaskInRole},
	{".exit session", "end the active session", MaskInSession},
}

// AllCommands returns the full, unfiltered table.
func AllCommands() []ReplCommand {
	out := make([]ReplCommand, len(commandTable))
	copy(out, commandTable)
	return out
}
