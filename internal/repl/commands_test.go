package repl

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cortexcli/chatrepl/internal/config"
	"github.com/cortexcli/chatrepl/internal/llmclient"
	"github.com/cortexcli/chatrepl/internal/session"
	"github.com/cortexcli/chatrepl/internal/uistyle"
)

func newDispatchController(t *testing.T) *Controller {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	store, err := session.Open(context.Background(), ":memory:", "t1")
	if err != nil {
		t.Fatalf("session.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := &config.Handle{}
	newClient := func(config.Settings) (llmclient.Client, error) { return &fakeClient{reply: "reply text"}, nil }
	return New(cfg, store, newClient, &fakeEditor{}, nil, nil, uistyle.New(os.Stdout), slog.Default(), os.Stdout)
}

func TestDispatchSetUpdatesConfig(t *testing.T) {
	ctrl := newDispatchController(t)
	if _, err := ctrl.dispatch(context.Background(), ".set", "model gpt-test"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got := ctrl.cfg.Snapshot().Model; got != "gpt-test" {
		t.Fatalf("model = %q, want gpt-test", got)
	}
}

func TestDispatchUnknownCommandErrors(t *testing.T) {
	ctrl := newDispatchController(t)
	if _, err := ctrl.dispatch(context.Background(), ".bogus", ""); err == nil {
		t.Fatal("expected an error for an unknown command")
	}
}

func TestDispatchMaskRejectsUnavailableCommand(t *testing.T) {
	ctrl := newDispatchController(t)
	if _, err := ctrl.dispatch(context.Background(), ".exit", "session"); err == nil {
		t.Fatal("expected .exit session to be rejected outside a session")
	}
}

func TestDispatchCopyWithNoReplyErrors(t *testing.T) {
	ctrl := newDispatchController(t)
	if _, err := ctrl.dispatch(context.Background(), ".copy", ""); err == nil {
		t.Fatal("expected .copy to fail before any reply has been received")
	}
}

func TestDispatchSessionLifecycle(t *testing.T) {
	ctrl := newDispatchController(t)

	if _, err := ctrl.dispatch(context.Background(), ".session", "my-session"); err != nil {
		t.Fatalf("dispatch .session: %v", err)
	}
	if !ctrl.inSession {
		t.Fatal("expected inSession to be true after .session")
	}

	if err := ctrl.store.AppendEntry(context.Background(), session.Entry{Role: session.RoleUser, Text: "hi", Tokens: 1}); err != nil {
		t.Fatalf("AppendEntry: %v", err)
	}
	if _, err := ctrl.dispatch(context.Background(), ".clear", "messages"); err != nil {
		t.Fatalf("dispatch .clear messages: %v", err)
	}
	entries, err := ctrl.store.Conversation(context.Background())
	if err != nil {
		t.Fatalf("Conversation: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("entries = %d, want 0 after .clear messages", len(entries))
	}

	if _, err := ctrl.dispatch(context.Background(), ".exit", "session"); err != nil {
		t.Fatalf("dispatch .exit session: %v", err)
	}
	if ctrl.inSession {
		t.Fatal("expected inSession to be false after .exit session")
	}
}

func TestDispatchEditAsksWithEditedText(t *testing.T) {
	ctrl := newDispatchController(t)

	if _, err := ctrl.dispatch(context.Background(), ".edit", "draft text"); err != nil {
		t.Fatalf("dispatch .edit: %v", err)
	}

	entries, err := ctrl.store.Conversation(context.Background())
	if err != nil {
		t.Fatalf("Conversation: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Text != "draft text" {
		t.Fatalf("user entry = %q, want the fake editor's echoed seed text", entries[0].Text)
	}
}

func TestDispatchFileAttachesContentsAndAsks(t *testing.T) {
	ctrl := newDispatchController(t)

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("attached body"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := ctrl.dispatch(context.Background(), ".file", path+" -- summarise this"); err != nil {
		t.Fatalf("dispatch .file: %v", err)
	}

	entries, err := ctrl.store.Conversation(context.Background())
	if err != nil {
		t.Fatalf("Conversation: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if got := entries[0].Text; !strings.Contains(got, "attached body") || !strings.Contains(got, "summarise this") {
		t.Fatalf("user entry = %q, want it to contain the file body and trailing text", got)
	}
}
