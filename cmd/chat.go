package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cortexcli/chatrepl/internal/config"
	"github.com/cortexcli/chatrepl/internal/debuglog"
	"github.com/cortexcli/chatrepl/internal/editorsurface"
	"github.com/cortexcli/chatrepl/internal/llmclient"
	"github.com/cortexcli/chatrepl/internal/markdown"
	"github.com/cortexcli/chatrepl/internal/repl"
	"github.com/cortexcli/chatrepl/internal/replcmd"
	"github.com/cortexcli/chatrepl/internal/session"
	"github.com/cortexcli/chatrepl/internal/termstream"
	"github.com/cortexcli/chatrepl/internal/uistyle"
)

var (
	chatModel   string
	chatRole    string
	chatSession string
	chatConfig  string
	chatDebug   bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatModel, "model", "", "model name, overriding the configured default")
	chatCmd.Flags().StringVar(&chatRole, "role", "", "role to start in")
	chatCmd.Flags().StringVar(&chatSession, "session", "", "session name to start or resume")
	chatCmd.Flags().StringVar(&chatConfig, "config", "", "path to an alternate config file")
	chatCmd.Flags().BoolVar(&chatDebug, "debug", false, "record ModelError/TerminalError occurrences to a debug log file")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadFrom(chatConfig)
	if err != nil {
		return fmt.Errorf("chatrepl: load config: %w", err)
	}
	if chatModel != "" {
		if err := cfg.SetKey("model", chatModel); err != nil {
			return err
		}
	}
	if chatRole != "" {
		if err := cfg.SetKey("role", chatRole); err != nil {
			return err
		}
	}

	log := debuglog.Noop()
	if chatDebug {
		l, closeLog, err := debuglog.Open()
		if err != nil {
			return fmt.Errorf("chatrepl: open debug log: %w", err)
		}
		defer closeLog()
		log = l
	}

	var store session.Store = session.NoopStore{}
	if chatSession != "" {
		s, err := session.Open(ctx, "", chatSession)
		if err != nil {
			return fmt.Errorf("chatrepl: open session %q: %w", chatSession, err)
		}
		store = s
	}
	defer store.Close()

	styles := uistyle.New(os.Stdout)

	var scr termstream.Screen
	var md *markdown.Renderer
	width := 80
	if term.IsTerminal(int(os.Stdout.Fd())) {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
			width = w
		}
		t, err := termstream.Open(os.Stdout, os.Stdin, int(os.Stdin.Fd()), width)
		if err != nil {
			return fmt.Errorf("chatrepl: open terminal: %w", err)
		}
		defer t.Close()
		scr = t

		r, err := markdown.New(width)
		if err != nil {
			return fmt.Errorf("chatrepl: build markdown renderer: %w", err)
		}
		md = r
	}

	keymap := editorsurface.KeymapEmacs
	if cfg.Snapshot().Keymap == string(editorsurface.KeymapVi) {
		keymap = editorsurface.KeymapVi
	}

	var ctrl *repl.Controller
	ed := editorsurface.New(keymap, func() replcmd.ReplState { return ctrl.State() })
	defer ed.Close()

	newClient := func(snap config.Settings) (llmclient.Client, error) {
		return llmclient.NewAnthropicClient(snap.Extra["api_key"], snap.Model)
	}

	ctrl = repl.New(cfg, store, newClient, ed, scr, md, styles, log, os.Stdout)
	return ctrl.Run(ctx)
}
