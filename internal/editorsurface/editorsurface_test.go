package editorsurface

import (
	"testing"

	"github.com/cortexcli/chatrepl/internal/replcmd"
)

func TestCompleteFiltersByCurrentState(t *testing.T) {
	state := replcmd.ReplState{}
	e := &Editor{state: func() replcmd.ReplState { return state }}

	for _, name := range e.complete(".exit session") {
		if name == ".exit session" {
			t.Fatalf("did not expect .exit session to be offered outside a session")
		}
	}

	state.InSession = true
	got := e.complete(".exit session")
	if len(got) != 1 || got[0] != ".exit session" {
		t.Fatalf("got %v", got)
	}
}
