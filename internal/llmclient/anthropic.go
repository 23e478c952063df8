package llmclient

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/cortexcli/chatrepl/internal/abort"
	"github.com/cortexcli/chatrepl/internal/replevents"
)

// AnthropicClient adapts the Anthropic Messages API to the Client contract.
type AnthropicClient struct {
	sdk   anthropic.Client
	model string
}

// NewAnthropicClient resolves credentials from apiKey, falling back to
// ANTHROPIC_API_KEY, and binds the client to model.
func NewAnthropicClient(apiKey, model string) (*AnthropicClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("llmclient: no Anthropic API key (set ANTHROPIC_API_KEY or .set api_key)")
	}
	return &AnthropicClient{
		sdk:   anthropic.NewClient(option.WithAPIKey(apiKey)),
		model: model,
	}, nil
}

// Capabilities reports the fixed capability set Claude models support here.
func (c *AnthropicClient) Capabilities() []Capability {
	return []Capability{"vision", "tools"}
}

func (c *AnthropicClient) params(in Input) anthropic.MessageNewParams {
	return anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(in.Text)),
		},
	}
}

// StreamResponse drives the streaming Messages call, translating text
// deltas into ReplyEvents and watching sig on every delta so an observed
// Ctrl-C stops consuming the upstream body at the next opportunity.
func (c *AnthropicClient) StreamResponse(ctx context.Context, in Input, sig *abort.Signal) (<-chan replevents.Event, error) {
	out := make(chan replevents.Event, 16)

	go func() {
		defer close(out)

		stream := c.sdk.Messages.NewStreaming(ctx, c.params(in))
		for stream.Next() {
			if sig.Aborted() {
				return
			}
			event := stream.Current()
			if delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
				if text, ok := delta.Delta.AsAny().(anthropic.TextDelta); ok && text.Text != "" {
					out <- replevents.TextEvent(text.Text)
				}
			}
		}
		if err := stream.Err(); err != nil {
			out <- replevents.TextEvent(fmt.Sprintf("\n[stream error: %v]\n", err))
		}
		out <- replevents.DoneEvent
	}()

	return out, nil
}

// Complete runs a non-streaming call for CompressionTask's summarisation
// request, returning the assistant's full text reply.
func (c *AnthropicClient) Complete(ctx context.Context, in Input) (string, error) {
	msg, err := c.sdk.Messages.New(ctx, c.params(in))
	if err != nil {
		return "", fmt.Errorf("llmclient: complete: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += tb.Text
		}
	}
	return text, nil
}
