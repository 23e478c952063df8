package replcmd

import "testing"

func TestParseCommandWithTrailingArg(t *testing.T) {
	name, arg, ok := ParseCommand(" .set dry_run true  ")
	if !ok || name != ".set" || arg != "dry_run true" {
		t.Fatalf("got (%q, %q, %v)", name, arg, ok)
	}
}

func TestParseCommandNoArg(t *testing.T) {
	name, arg, ok := ParseCommand(" .role")
	if !ok || name != ".role" || arg != "" {
		t.Fatalf("got (%q, %q, %v)", name, arg, ok)
	}
}

func TestParseCommandArgAcrossNewline(t *testing.T) {
	name, arg, ok := ParseCommand(".prompt \nabc\n")
	if !ok || name != ".prompt" || arg != "abc" {
		t.Fatalf("got (%q, %q, %v)", name, arg, ok)
	}
}

func TestParseCommandRejectsPlainText(t *testing.T) {
	if _, _, ok := ParseCommand("hello there"); ok {
		t.Fatal("expected plain text to not parse as a command")
	}
}

func TestFenceRoundTrip(t *testing.T) {
	in := ":::\nhello\nworld\n:::"
	if IsFenceIncomplete(in) {
		t.Fatal("expected closed fence to be complete")
	}
	if got, want := UnwrapFence(in), "hello\nworld"; got != want {
		t.Fatalf("UnwrapFence = %q, want %q", got, want)
	}
}

func TestFenceIncompleteUntilClosed(t *testing.T) {
	if !IsFenceIncomplete(":::\nhello") {
		t.Fatal("expected unclosed fence to be incomplete")
	}
}

func TestFilterCommandsRespectsStateMask(t *testing.T) {
	inSession := ReplState{InSession: true}
	cmds := FilterCommands(".exit session", inSession)
	if len(cmds) != 1 || cmds[0].Name != ".exit session" {
		t.Fatalf("got %+v", cmds)
	}

	noSession := ReplState{}
	cmds = FilterCommands(".exit session", noSession)
	for _, c := range cmds {
		if c.Name == ".exit session" {
			t.Fatalf(".exit session should not be offered outside a session")
		}
	}
}
