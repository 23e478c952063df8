package repl

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/anmitsu/go-shlex"
	"github.com/atotto/clipboard"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/cortexcli/chatrepl/internal/llmclient"
	"github.com/cortexcli/chatrepl/internal/replcmd"
	"github.com/cortexcli/chatrepl/internal/session"
)

// dispatch implements the command table of section 6: every verb gated by
// replcmd's state mask is handled here. Unknown or malformed commands
// produce a single-line error and leave the loop running.
func (c *Controller) dispatch(ctx context.Context, name, arg string) (exit bool, err error) {
	state := c.replState()
	cmd, ok := lookupCommand(name, arg)
	if !ok || !cmd.Mask.Satisfies(state) {
		return false, fmt.Errorf("replcmd: %q is not available here", strings.TrimSpace(name+" "+arg))
	}

	switch cmd.Name {
	case ".help":
		return false, c.cmdHelp()
	case ".info":
		return false, c.cmdInfo(ctx, "")
	case ".info role":
		return false, c.cmdInfo(ctx, "role")
	case ".info session":
		return false, c.cmdInfo(ctx, "session")
	case ".model":
		return false, c.cfg.SetKey("model", arg)
	case ".prompt":
		return false, c.cmdPrompt(arg)
	case ".role":
		return false, c.cmdRole(ctx, arg)
	case ".session":
		return false, c.cmdSession(ctx, arg)
	case ".save session":
		return false, c.cmdSaveSession()
	case ".set":
		return false, c.cmdSet(arg)
	case ".copy":
		return false, c.cmdCopy()
	case ".file":
		return false, c.cmdFile(ctx, arg)
	case ".edit":
		return false, c.cmdEdit(ctx, arg)
	case ".clear messages":
		return false, c.store.ReplaceConversation(ctx, nil)
	case ".exit":
		return c.cmdExit(ctx, "")
	case ".exit role":
		return c.cmdExit(ctx, "role")
	case ".exit session":
		return c.cmdExit(ctx, "session")
	default:
		return false, fmt.Errorf("replcmd: unhandled command %q", cmd.Name)
	}
}

// lookupCommand resolves a parsed (name, arg) pair against the command
// table. ".info", ".exit", ".clear" and ".save" have two-word variants that
// fold their first argument word into the lookup name.
func lookupCommand(name, arg string) (replcmd.ReplCommand, bool) {
	full := name
	firstWord, rest, _ := strings.Cut(arg, " ")
	switch name {
	case ".info", ".exit":
		if firstWord == "role" || firstWord == "session" {
			full = name + " " + firstWord
			arg = rest
		}
	case ".clear":
		if firstWord == "messages" {
			full = name + " " + firstWord
			arg = rest
		}
	case ".save":
		if firstWord == "session" {
			full = name + " " + firstWord
			arg = rest
		}
	}
	for _, cmd := range replcmd.AllCommands() {
		if cmd.Name == full {
			return cmd, true
		}
	}
	return replcmd.ReplCommand{}, false
}

func (c *Controller) cmdHelp() error {
	fmt.Fprintln(c.out, c.styles.RenderHint("available commands:"))
	for _, cmd := range replcmd.FilterCommands("", c.replState()) {
		fmt.Fprintf(c.out, "  %-20s %s\n", cmd.Name, cmd.Description)
	}
	return nil
}

func (c *Controller) cmdInfo(ctx context.Context, which string) error {
	snap := c.cfg.Snapshot()
	switch which {
	case "role":
		fmt.Fprintf(c.out, "role: %s\n", c.role)
	case "session":
		tokens, _ := c.store.ConversationTokens(ctx)
		fmt.Fprintf(c.out, "session: in_session=%v tokens=%d\n", c.inSession, tokens)
	default:
		fmt.Fprintf(c.out, "model: %s\nkeymap: %s\ncompression_tokens: %d\n", snap.Model, snap.Keymap, snap.CompressionTokens)
	}
	return nil
}

// cmdPrompt defines an ad-hoc role from a one-off prompt, per .prompt's
// entry in the command table: it behaves like .role but sources the role
// text directly from the argument instead of a named, persisted role.
func (c *Controller) cmdPrompt(arg string) error {
	if strings.TrimSpace(arg) == "" {
		return fmt.Errorf("replcmd: .prompt requires a prompt body")
	}
	if err := c.cfg.SetKey("role_prompt", arg); err != nil {
		return err
	}
	c.role = "prompt"
	return nil
}

// cmdRole switches the active role to name, or — when text follows the
// role name — asks once under that role without changing the persistent
// active role.
func (c *Controller) cmdRole(ctx context.Context, arg string) error {
	name, text, _ := strings.Cut(strings.TrimSpace(arg), " ")
	if name == "" {
		return fmt.Errorf("replcmd: .role requires a role name")
	}
	if text == "" {
		c.role = name
		return c.cfg.SetKey("role", name)
	}
	prior := c.role
	c.role = name
	defer func() { c.role = prior }()
	return c.ask(ctx, llmclient.Input{Text: text})
}

// cmdSession starts a new session, opening a durable SQLite-backed store
// in place of the current store (which it closes), such as the discarding
// NoopStore the chat command starts with when no --session is given.
func (c *Controller) cmdSession(ctx context.Context, arg string) error {
	name := strings.TrimSpace(arg)
	if name == "" {
		name = "session-" + strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	store, err := session.Open(ctx, "", name)
	if err != nil {
		return fmt.Errorf("session: open %q: %w", name, err)
	}
	if err := c.store.Close(); err != nil {
		c.log.Warn("close previous store failed", "error", err)
	}
	c.store = store
	c.inSession = true
	return nil
}

func (c *Controller) cmdSaveSession() error {
	return c.cfg.Save()
}

func (c *Controller) cmdSet(arg string) error {
	key, value, ok := strings.Cut(strings.TrimSpace(arg), " ")
	if !ok || key == "" {
		return fmt.Errorf("replcmd: .set requires a key and a value")
	}
	return c.cfg.SetKey(key, strings.TrimSpace(value))
}

func (c *Controller) cmdCopy() error {
	if c.lastReply == "" {
		return fmt.Errorf("replcmd: no reply yet to copy")
	}
	return clipboard.WriteAll(c.lastReply)
}

// cmdFile implements ".file <paths>... [-- <text>...]": paths are split
// shell-style, each path is glob-expanded against the current directory
// tree, and the matched files' contents are prepended to the optional
// trailing text before asking.
func (c *Controller) cmdFile(ctx context.Context, arg string) error {
	words, err := shlex.Split(arg, true)
	if err != nil {
		return fmt.Errorf("replcmd: .file: %w", err)
	}
	if len(words) == 0 {
		return fmt.Errorf("replcmd: .file requires at least one path")
	}

	var patterns []string
	var textWords []string
	for i, w := range words {
		if w == "--" {
			textWords = words[i+1:]
			break
		}
		patterns = append(patterns, w)
	}

	var matched []string
	for _, pattern := range patterns {
		if _, statErr := os.Stat(pattern); statErr == nil {
			matched = append(matched, pattern)
			continue
		}
		found, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return fmt.Errorf("replcmd: .file: glob %q: %w", pattern, err)
		}
		matched = append(matched, found...)
	}
	if len(matched) == 0 {
		return fmt.Errorf("replcmd: .file: no paths matched")
	}

	var sb strings.Builder
	for _, path := range matched {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("replcmd: .file: read %q: %w", path, err)
		}
		fmt.Fprintf(&sb, "--- %s ---\n%s\n", path, data)
	}
	if len(textWords) > 0 {
		sb.WriteString(strings.Join(textWords, " "))
	}

	return c.ask(ctx, llmclient.Input{Text: sb.String()})
}

// cmdEdit opens the editor's external-editor escape hatch (see
// internal/editorsurface's disclosed gap on why this is a command rather
// than a live Ctrl-O keystroke), seeds it with arg, and asks with
// whatever the user leaves in the file.
func (c *Controller) cmdEdit(ctx context.Context, arg string) error {
	text, err := c.editor.Edit(arg)
	if err != nil {
		return fmt.Errorf("replcmd: .edit: %w", err)
	}
	return c.ask(ctx, llmclient.Input{Text: text})
}

func (c *Controller) cmdExit(ctx context.Context, scope string) (exit bool, err error) {
	switch scope {
	case "role":
		c.role = ""
		return false, nil
	case "session":
		if c.inSession {
			c.inSession = false
			if err := c.store.Close(); err != nil {
				c.log.Warn("close session store failed", "error", err)
			}
			c.store = session.NoopStore{}
		}
		return false, nil
	default:
		if c.role != "" {
			c.role = ""
			return false, nil
		}
		if c.inSession {
			return c.cmdExit(ctx, "session")
		}
		return true, nil
	}
}
