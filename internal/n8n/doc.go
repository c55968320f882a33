// Package n8n implements the wire protocol between chatrelay and an n8n
// workflow webhook.
//
// # Overview
//
// An n8n AI Agent webhook answers a JSON POST with an HTTP streaming
// body of newline-delimited JSON objects:
//
//	{"type": "start"|"item"|"end", "content"?: string, "metadata"?: {...}}
//
// This package has two pieces:
//
//   - Parser: a per-stream state machine that turns raw lines into
//     Chunks and tracks assembled content and statistics.
//   - Client: drives one authenticated streaming POST and fans parsed
//     chunks out to caller callbacks.
//
// # Parser
//
//	p := n8n.NewParser()
//	chunk := p.ParseLine(line)   // nil for empty/malformed lines
//	text := p.CompleteContent()  // item content in arrival order
//	stats := p.StreamStats()
//
// Malformed lines are counted, never fatal. Lines without a type are
// classified as "unknown"; lines with an unrecognized type keep their
// value and count as unknown in Stats. Both produce a Chunk and
// contribute nothing to content.
//
// # Client
//
//	client := n8n.New(n8n.Config{URL: url, Username: u, Password: pw}, logger)
//	err := client.ProcessStream(ctx, payload, n8n.Callbacks{
//		OnChunk:    func(c *n8n.Chunk, content string) { ... },
//		OnComplete: func(content string, md map[string]any) { ... },
//		OnError:    func(err error) { ... },
//	})
//
// Per call the client moves through IDLE, CONNECTING, STREAMING, and
// ends in COMPLETED or FAILED. Callbacks fire in stream order; the read
// loop is sequential, so callback code may touch shared session state
// without extra locking as long as one stream is active per session.
// OnComplete and OnError are mutually exclusive and fire at most once.
// Errors are never retried here; retry policy belongs to the caller.
//
// The channel variant Stream(ctx, payload) adapts the same exchange
// into a sequence of Event values for consumers that prefer ranging
// over a channel.
package n8n
