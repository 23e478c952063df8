// Package repl implements ReplController: the main read-dispatch-ask loop
// that ties the editor, command parser, model client, stream renderer, and
// session store together.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"github.com/cortexcli/chatrepl/internal/abort"
	"github.com/cortexcli/chatrepl/internal/compression"
	"github.com/cortexcli/chatrepl/internal/config"
	"github.com/cortexcli/chatrepl/internal/llmclient"
	"github.com/cortexcli/chatrepl/internal/markdown"
	"github.com/cortexcli/chatrepl/internal/replcmd"
	"github.com/cortexcli/chatrepl/internal/replevents"
	"github.com/cortexcli/chatrepl/internal/session"
	"github.com/cortexcli/chatrepl/internal/termstream"
	"github.com/cortexcli/chatrepl/internal/uistyle"
)

// compressionBarrierPoll is the sleep interval of ask() step 2.
const compressionBarrierPoll = 100 * time.Millisecond

// ClientFactory builds a model client from the current configuration
// snapshot, e.g. binding an Anthropic API key and model name.
type ClientFactory func(cfg config.Settings) (llmclient.Client, error)

// Controller drives the REPL main loop.
type Controller struct {
	cfg       *config.Handle
	store     session.Store
	newClient ClientFactory
	editor    Editor
	scr       termstream.Screen
	md        *markdown.Renderer
	styles    *uistyle.Styles
	log       *slog.Logger
	out       io.Writer

	sig       *abort.Signal
	role      string
	inSession bool
	lastReply string
}

// Editor is the minimal editor surface Controller depends on, satisfied by
// *editorsurface.Editor.
type Editor interface {
	ReadLine(prompt string, sig *abort.Signal) (string, error)
	Edit(initial string) (string, error)
}

// New builds a Controller. scr may be nil when stdout is not a terminal,
// in which case replies fall back to RawStream.
func New(cfg *config.Handle, store session.Store, newClient ClientFactory, ed Editor, scr termstream.Screen, md *markdown.Renderer, styles *uistyle.Styles, log *slog.Logger, out io.Writer) *Controller {
	return &Controller{
		cfg:       cfg,
		store:     store,
		newClient: newClient,
		editor:    ed,
		scr:       scr,
		md:        md,
		styles:    styles,
		log:       log,
		out:       out,
		sig:       abort.New(),
	}
}

// Run executes the main loop until Ctrl-D or a command requests exit.
func (c *Controller) Run(ctx context.Context) error {
	for {
		if c.sig.AbortedCtrlD() {
			break
		}

		line, err := c.editor.ReadLine(c.prompt(), c.sig)
		switch {
		case err == nil:
			c.sig.Reset()
			exit, herr := c.handle(ctx, line)
			if herr != nil {
				fmt.Fprintln(c.out, c.styles.RenderError(herr))
				fmt.Fprintln(c.out)
				continue
			}
			if exit {
				goto done
			}
		case c.sig.Aborted() && !c.sig.AbortedCtrlD():
			fmt.Fprintln(c.out, c.styles.RenderHint("(cancelled; Ctrl-D to exit)"))
		case c.sig.AbortedCtrlD():
			goto done
		default:
			return err
		}
	}
done:
	_, _ = c.handle(ctx, ".exit session")
	return nil
}

func (c *Controller) prompt() string {
	if c.role != "" {
		return c.role + "> "
	}
	return "> "
}

func (c *Controller) replState() replcmd.ReplState {
	return replcmd.ReplState{InRole: c.role != "", InSession: c.inSession}
}

// State exposes the current role/session state for the editor surface's
// completion filtering, which lives outside this package.
func (c *Controller) State() replcmd.ReplState {
	return c.replState()
}

// handle implements section 4.7's dispatch: fence unwrap, command dispatch,
// or a user turn through ask().
func (c *Controller) handle(ctx context.Context, line string) (exit bool, err error) {
	if replcmd.IsFenceIncomplete(line) {
		return false, errors.New("replcmd: unterminated ::: fence")
	}
	if strings.HasPrefix(strings.TrimSpace(line), ":::") {
		line = replcmd.UnwrapFence(line)
	}

	if name, arg, ok := replcmd.ParseCommand(line); ok {
		return c.dispatch(ctx, name, arg)
	}

	return false, c.ask(ctx, llmclient.Input{Text: line})
}

// ask implements section 4.7's eight-step send path.
func (c *Controller) ask(ctx context.Context, in llmclient.Input) error {
	if strings.TrimSpace(in.Text) == "" {
		return nil
	}

	for c.cfg.Compressing() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(compressionBarrierPoll):
		}
	}

	snap := c.cfg.Snapshot()

	tokens, err := c.store.ConversationTokens(ctx)
	if err == nil && tokens > 0 {
		fmt.Fprintln(c.out, c.styles.RenderHint(fmt.Sprintf("sending %d tokens", tokens)))
	}

	client, err := c.newClient(snap)
	if err != nil {
		c.log.Error("model client init failed", "error", err)
		return fmt.Errorf("model client: %w", err)
	}
	if !llmclient.SupportsAll(client.Capabilities(), in.RequiredCapabilities) {
		c.log.Error("model capability mismatch", "model", snap.Model)
		return fmt.Errorf("model %q does not support the required capabilities", snap.Model)
	}

	rx, err := client.StreamResponse(ctx, in, c.sig)
	if err != nil {
		c.log.Error("model stream failed", "error", err)
		return fmt.Errorf("model stream: %w", err)
	}

	reply, err := c.render(ctx, rx)
	if err != nil {
		c.log.Error("render reply failed", "error", err)
		return fmt.Errorf("render reply: %w", err)
	}

	if err := c.store.AppendEntry(ctx, session.Entry{Role: session.RoleUser, Text: in.Text, Tokens: estimateTokens(in.Text)}); err != nil {
		c.log.Warn("persist user entry failed", "error", err)
	}
	if err := c.store.AppendEntry(ctx, session.Entry{Role: session.RoleAssistant, Text: reply, Tokens: estimateTokens(reply)}); err != nil {
		c.log.Warn("persist assistant entry failed", "error", err)
	}
	c.lastReply = reply

	if snap.Extra["auto_copy"] == "true" {
		if err := clipboard.WriteAll(reply); err != nil {
			c.log.Warn("clipboard copy failed", "error", err)
		}
	}

	total, err := c.store.ConversationTokens(ctx)
	if err == nil && total > snap.CompressionTokens && snap.CompressionTokens > 0 && !c.cfg.Compressing() {
		c.cfg.SetCompressing(true)
		client := client
		go compression.Run(context.Background(), c.cfg, c.store, client, c.log)
	}

	return nil
}

// render drives the reply through the terminal renderer when a Screen is
// available, falling back to a raw pass-through otherwise, while
// accumulating the full reply text for persistence.
func (c *Controller) render(ctx context.Context, rx <-chan replevents.Event) (string, error) {
	var sb strings.Builder
	forward := make(chan replevents.Event)
	go func() {
		defer close(forward)
		for ev := range rx {
			if ev.Text != "" {
				sb.WriteString(ev.Text)
			}
			forward <- ev
		}
	}()

	var err error
	if c.scr != nil {
		err = termstream.MarkdownStream(ctx, c.scr, forward, c.md, c.sig)
	} else {
		err = termstream.RawStream(ctx, c.out, forward, c.sig)
	}
	return sb.String(), err
}

func estimateTokens(s string) int {
	n := len(s) / 4
	if n < 1 && s != "" {
		return 1
	}
	return n
}
