// Package compression implements CompressionTask: a background summarise-
// and-replace pass that keeps a long-running session's token footprint
// bounded.
package compression

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cortexcli/chatrepl/internal/config"
	"github.com/cortexcli/chatrepl/internal/llmclient"
	"github.com/cortexcli/chatrepl/internal/session"
)

// Run snapshots store's conversation, asks client to summarise it under the
// configured prompt, and replaces the conversation with the summary. The
// "compressing" flag on cfg is always cleared on return, success or
// failure, so ask()'s barrier never deadlocks.
func Run(ctx context.Context, cfg *config.Handle, store session.Store, client llmclient.Client, log *slog.Logger) {
	defer cfg.SetCompressing(false)

	entries, err := store.Conversation(ctx)
	if err != nil {
		log.Error("compression: snapshot conversation failed", "error", err)
		return
	}
	if len(entries) == 0 {
		return
	}

	prompt := cfg.Snapshot().SummarisationPrompt
	summary, err := client.Complete(ctx, llmclient.Input{Text: buildSummaryPrompt(prompt, entries)})
	if err != nil {
		log.Error("compression: summarisation call failed", "error", err)
		return
	}

	replacement := []session.Entry{{Role: session.RoleSystem, Text: summary, Tokens: estimateTokens(summary)}}
	if err := store.ReplaceConversation(ctx, replacement); err != nil {
		log.Error("compression: replace conversation failed", "error", err)
	}
}

func buildSummaryPrompt(instruction string, entries []session.Entry) string {
	out := instruction + "\n\n"
	for _, e := range entries {
		out += fmt.Sprintf("[%s] %s\n", e.Role, e.Text)
	}
	return out
}

// estimateTokens is a coarse, dependency-free approximation (roughly four
// characters per token) used only to keep the replacement entry's token
// count in the same ballpark as the entries it replaces.
func estimateTokens(s string) int {
	n := len(s) / 4
	if n < 1 {
		return 1
	}
	return n
}
