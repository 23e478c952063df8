// Package replevents defines the reply-event stream contract shared between
// a model client and the stream renderer, and the batching that smooths
// bursts of small events before they reach the renderer.
package replevents

import (
	"context"
	"time"
)

// Event is a tagged variant: either a Text fragment or the terminal Done
// marker. The stream always ends with exactly one Done; no events follow it.
type Event struct {
	Text string
	Done bool
}

// TextEvent constructs a Text event.
func TextEvent(s string) Event { return Event{Text: s} }

// DoneEvent is the terminal marker.
var DoneEvent = Event{Done: true}

// Window is the coalescing interval EventGather accumulates chunks over.
const Window = 50 * time.Millisecond

// Batch is the result of one coalescing pass: at most one concatenated Text
// event followed optionally by Done.
type Batch struct {
	Text     string
	HasText  bool
	Done     bool
	Closed   bool // channel closed without a terminating Done: abnormal end
}

// Empty reports whether the batch carries nothing at all (timer elapsed with
// no events available).
func (b Batch) Empty() bool {
	return !b.HasText && !b.Done && !b.Closed
}

// Gather returns everything available on rx within Window, or until Done
// arrives, whichever comes first. It never blocks past Window once the
// first event (if any) is read, and returns immediately (empty batch) if
// ctx is already done.
//
// If rx closes without ever producing a Done, Batch.Closed is set and the
// caller's loop must treat this as an error (an unterminated stream), not a
// silent end.
func Gather(ctx context.Context, rx <-chan Event) Batch {
	var b Batch

	timer := time.NewTimer(Window)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-rx:
			if !ok {
				b.Closed = true
				return b
			}
			if ev.Done {
				b.Done = true
				return b
			}
			if ev.Text != "" {
				b.Text += ev.Text
				b.HasText = true
			}
			// Keep draining non-blockingly until the window elapses or Done
			// arrives, so a burst collapses into one batch.
		case <-timer.C:
			return b
		case <-ctx.Done():
			return b
		}
	}
}
