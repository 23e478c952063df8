// Package llmclient defines the model-client contract ask() drives: given
// an Input and an abort signal, stream ReplyEvents until Done or
// cancellation.
package llmclient

import (
	"context"

	"github.com/cortexcli/chatrepl/internal/abort"
	"github.com/cortexcli/chatrepl/internal/replevents"
)

// Capability names a feature a caller's Input may require and a Client may
// advertise, e.g. "vision" or "tools".
type Capability string

// Input is one user turn submitted to the model.
type Input struct {
	Text                 string
	RequiredCapabilities []Capability
	Streaming            bool
}

// Client is the model-client contract of section 4.7 steps 4-5: advertise
// capabilities, then drive a streaming or one-shot call.
type Client interface {
	Capabilities() []Capability
	StreamResponse(ctx context.Context, in Input, sig *abort.Signal) (<-chan replevents.Event, error)
	// Complete runs a non-streaming call, used by CompressionTask's
	// summarisation request where no incremental rendering is needed.
	Complete(ctx context.Context, in Input) (string, error)
}

// SupportsAll reports whether every capability in.RequiredCapabilities is
// advertised by caps, used by ask() step 4's subset check.
func SupportsAll(caps []Capability, required []Capability) bool {
	have := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		have[c] = true
	}
	for _, r := range required {
		if !have[r] {
			return false
		}
	}
	return true
}
