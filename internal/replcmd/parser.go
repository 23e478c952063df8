package replcmd

import (
	"regexp"
	"strings"
)

var dotCommandPattern = regexp.MustCompile(`^\s*(\.\S*)\s*`)

// fencePattern matches a full multi-line submission wrapped in ::: markers;
// (?s) lets '.' span newlines so the inner text can itself contain them.
var fencePattern = regexp.MustCompile(`(?s)^\s*:::\s*(.*)\s*:::\s*$`)

// ParseCommand recognises the leading dot-command of line, if any. ok is
// false when line does not start with a dot-command at all. arg is the
// trimmed remainder, or "" if nothing follows the command name.
func ParseCommand(line string) (name, arg string, ok bool) {
	m := dotCommandPattern.FindStringSubmatchIndex(line)
	if m == nil {
		return "", "", false
	}
	name = line[m[2]:m[3]]
	arg = strings.TrimSpace(line[m[1]:])
	return name, arg, true
}

// IsFenceIncomplete reports whether a submission's trimmed body opens a :::
// fence without yet closing it. The editor does not consult it; the
// controller rejects such a submission with an error.
func IsFenceIncomplete(submission string) bool {
	t := strings.TrimSpace(submission)
	if !strings.HasPrefix(t, ":::") {
		return false
	}
	return !fencePattern.MatchString(submission)
}

// UnwrapFence strips a matched ::: fence down to its inner text. Callers
// must check IsFenceIncomplete is false (or that the fence matches) first;
// UnwrapFence returns the input unchanged if it isn't a fence at all.
func UnwrapFence(submission string) string {
	m := fencePattern.FindStringSubmatch(submission)
	if m == nil {
		return submission
	}
	return strings.TrimSpace(m[1])
}
