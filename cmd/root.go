package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cortexcli/chatrepl/internal/uistyle"
)

var rootCmd = &cobra.Command{
	Use:   "chatrepl",
	Short: "An interactive streaming terminal for conversational LLM sessions",
	Long: `chatrepl is a REPL for talking to a language model from the terminal.

Replies render incrementally as markdown while they stream in. Dot-commands
(.help, .role, .session, .file, ...) manage configuration, roles, sessions,
and file attachments without leaving the prompt.`,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

// Execute runs the root command, exiting non-zero on failure the way the
// distillation's own root command does. A FatalInitError is rendered in
// ANSI red when stderr is a terminal (spec §6), plain otherwise.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if uistyle.IsTerminal(os.Stderr) {
			fmt.Fprintln(os.Stderr, uistyle.New(os.Stderr).RenderError(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
