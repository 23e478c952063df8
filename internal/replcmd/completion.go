package replcmd

import "github.com/sahilm/fuzzy"

// commandSource adapts []ReplCommand to fuzzy.Source.
type commandSource []ReplCommand

func (c commandSource) String(i int) string { return c[i].Name }
func (c commandSource) Len() int            { return len(c) }

// FilterCommands returns the commands valid in state s whose name
// fuzzy-matches query, in table order when query is empty.
func FilterCommands(query string, s ReplState) []ReplCommand {
	visible := make([]ReplCommand, 0, len(commandTable))
	for _, c := range commandTable {
		if c.Mask.Satisfies(s) {
			visible = append(visible, c)
		}
	}
	if query == "" {
		return visible
	}

	matches := fuzzy.FindFrom(query, commandSource(visible))
	out := make([]ReplCommand, 0, len(matches))
	for _, m := range matches {
		out = append(out, visible[m.Index])
	}
	return out
}
