package repl

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/cortexcli/chatrepl/internal/abort"
	"github.com/cortexcli/chatrepl/internal/config"
	"github.com/cortexcli/chatrepl/internal/llmclient"
	"github.com/cortexcli/chatrepl/internal/replevents"
	"github.com/cortexcli/chatrepl/internal/session"
	"github.com/cortexcli/chatrepl/internal/uistyle"
)

// fakeEditor feeds a fixed script of lines, one per ReadLine call, then
// raises io.EOF as liner would on Ctrl-D.
type fakeEditor struct {
	lines []string
	pos   int
}

func (f *fakeEditor) ReadLine(prompt string, sig *abort.Signal) (string, error) {
	if f.pos >= len(f.lines) {
		sig.SetCtrlD()
		return "", io.EOF
	}
	line := f.lines[f.pos]
	f.pos++
	return line, nil
}

func (f *fakeEditor) Edit(initial string) (string, error) {
	return initial, nil
}

type fakeClient struct {
	reply        string
	unterminated bool
}

func (f *fakeClient) Capabilities() []llmclient.Capability { return []llmclient.Capability{"vision", "tools"} }

func (f *fakeClient) StreamResponse(ctx context.Context, in llmclient.Input, sig *abort.Signal) (<-chan replevents.Event, error) {
	out := make(chan replevents.Event, 2)
	out <- replevents.TextEvent(f.reply)
	if !f.unterminated {
		out <- replevents.DoneEvent
	}
	close(out)
	return out, nil
}

func (f *fakeClient) Complete(ctx context.Context, in llmclient.Input) (string, error) {
	return f.reply, nil
}

func newTestController(t *testing.T, lines []string) (*Controller, session.Store) {
	t.Helper()
	store, err := session.Open(context.Background(), ":memory:", "t1")
	if err != nil {
		t.Fatalf("session.Open: %v", err)
	}
	cfg := &config.Handle{}
	newClient := func(config.Settings) (llmclient.Client, error) { return &fakeClient{reply: "hi there"}, nil }
	ctrl := New(cfg, store, newClient, &fakeEditor{lines: lines}, nil, nil, uistyle.New(os.Stdout), slog.Default(), os.Stdout)
	return ctrl, store
}

func TestAskAppendsBothTurnsToStore(t *testing.T) {
	ctrl, store := newTestController(t, nil)
	defer store.Close()

	if err := ctrl.ask(context.Background(), llmclient.Input{Text: "hello"}); err != nil {
		t.Fatalf("ask: %v", err)
	}

	entries, err := store.Conversation(context.Background())
	if err != nil {
		t.Fatalf("Conversation: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Role != session.RoleUser || entries[0].Text != "hello" {
		t.Fatalf("entries[0] = %+v", entries[0])
	}
	if entries[1].Role != session.RoleAssistant || entries[1].Text != "hi there" {
		t.Fatalf("entries[1] = %+v", entries[1])
	}
	if ctrl.lastReply != "hi there" {
		t.Fatalf("lastReply = %q", ctrl.lastReply)
	}
}

func TestAskIgnoresBlankInput(t *testing.T) {
	ctrl, store := newTestController(t, nil)
	defer store.Close()

	if err := ctrl.ask(context.Background(), llmclient.Input{Text: "   "}); err != nil {
		t.Fatalf("ask: %v", err)
	}
	entries, _ := store.Conversation(context.Background())
	if len(entries) != 0 {
		t.Fatalf("entries = %d, want 0 for blank input", len(entries))
	}
}

func TestHandleDispatchesDotCommand(t *testing.T) {
	ctrl, store := newTestController(t, nil)
	defer store.Close()

	exit, err := ctrl.handle(context.Background(), ".role reviewer")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if exit {
		t.Fatal("did not expect .role to request exit")
	}
	if ctrl.role != "reviewer" {
		t.Fatalf("role = %q, want reviewer", ctrl.role)
	}
}

func TestHandleBareExitWithNoRoleOrSessionRequestsExit(t *testing.T) {
	ctrl, store := newTestController(t, nil)
	defer store.Close()

	exit, err := ctrl.handle(context.Background(), ".exit")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !exit {
		t.Fatal("expected bare .exit outside role/session to end the REPL")
	}
}

func TestHandleRejectsUnterminatedFence(t *testing.T) {
	ctrl, store := newTestController(t, nil)
	defer store.Close()

	if _, err := ctrl.handle(context.Background(), ":::\nhello"); err == nil {
		t.Fatal("expected an error for an unterminated ::: fence")
	}
}

func TestHandlePlainLineGoesToAsk(t *testing.T) {
	ctrl, store := newTestController(t, nil)
	defer store.Close()

	exit, err := ctrl.handle(context.Background(), "plain text, not a command")
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if exit {
		t.Fatal("a plain user turn must never request exit")
	}
	entries, _ := store.Conversation(context.Background())
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2 after a plain turn", len(entries))
	}
}

// TestAskSurfacesUnterminatedStream covers the case where the model client's
// event channel closes without a Done event: ask() must propagate the
// error rather than treat the turn as having succeeded.
func TestAskSurfacesUnterminatedStream(t *testing.T) {
	store, err := session.Open(context.Background(), ":memory:", "t1")
	if err != nil {
		t.Fatalf("session.Open: %v", err)
	}
	defer store.Close()

	cfg := &config.Handle{}
	newClient := func(config.Settings) (llmclient.Client, error) {
		return &fakeClient{reply: "partial", unterminated: true}, nil
	}
	ctrl := New(cfg, store, newClient, &fakeEditor{}, nil, nil, uistyle.New(os.Stdout), slog.Default(), os.Stdout)

	err = ctrl.ask(context.Background(), llmclient.Input{Text: "hello"})
	if err == nil {
		t.Fatal("expected ask to surface an unterminated-stream error")
	}

	entries, _ := store.Conversation(context.Background())
	if len(entries) != 0 {
		t.Fatalf("entries = %d, want 0: an unterminated turn must not be persisted", len(entries))
	}
}

// TestHandleSurfacesUnterminatedStreamToRun exercises the same failure
// through handle(), confirming the error reaches Run()'s render-to-user
// branch instead of being swallowed as a successful turn.
func TestHandleSurfacesUnterminatedStreamToRun(t *testing.T) {
	store, err := session.Open(context.Background(), ":memory:", "t1")
	if err != nil {
		t.Fatalf("session.Open: %v", err)
	}
	defer store.Close()

	cfg := &config.Handle{}
	newClient := func(config.Settings) (llmclient.Client, error) {
		return &fakeClient{reply: "partial", unterminated: true}, nil
	}
	ctrl := New(cfg, store, newClient, &fakeEditor{}, nil, nil, uistyle.New(os.Stdout), slog.Default(), os.Stdout)

	exit, herr := ctrl.handle(context.Background(), "hello")
	if herr == nil {
		t.Fatal("expected handle to surface the unterminated-stream error")
	}
	if exit {
		t.Fatal("an unterminated stream must not request REPL exit")
	}
}
