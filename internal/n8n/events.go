// ABOUTME: Channel-based event sequence over the callback client
// ABOUTME: Adapts ProcessStream into a lazy chunk-or-terminal Event stream

package n8n

import (
	"context"
)

// Event is one element of a stream sequence: either a chunk, or exactly
// one terminal element (Done with the final content, or Err).
type Event struct {
	// Chunk is set for chunk events.
	Chunk *Chunk

	// Content is the running assembled content at the time of the event,
	// and the final content on the Done event.
	Content string

	// Done marks clean stream completion. Metadata carries the start/end
	// chunk metadata.
	Done     bool
	Metadata map[string]any

	// Err marks stream failure. No further events follow.
	Err error
}

// Stream runs ProcessStream in a goroutine and exposes it as an event
// channel. The channel is closed after the terminal event. The buffer
// matches the session hub's per-subscriber size so a briefly slow
// consumer does not stall the read loop; a persistently slow consumer
// does, which preserves ordering and backpressure. Cancelling ctx
// releases the goroutine even when the consumer stops draining the
// channel.
func (c *Client) Stream(ctx context.Context, payload any) <-chan Event {
	events := make(chan Event, 64)

	go func() {
		defer close(events)

		// emit blocks until the consumer takes the event or ctx is
		// cancelled. After a cancellation every later event is dropped,
		// so an abandoned channel never pins this goroutine.
		cancelled := false
		emit := func(ev Event) {
			if cancelled {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				cancelled = true
			}
		}

		_ = c.ProcessStream(ctx, payload, Callbacks{
			OnChunk: func(chunk *Chunk, content string) {
				emit(Event{Chunk: chunk, Content: content})
			},
			OnComplete: func(content string, metadata map[string]any) {
				emit(Event{Done: true, Content: content, Metadata: metadata})
			},
			OnError: func(err error) {
				emit(Event{Err: err})
			},
		})
	}()

	return events
}
