// ABOUTME: Chunk type and wire-format constants for the n8n streaming protocol
// ABOUTME: One Chunk per line of newline-delimited JSON from the webhook response

package n8n

import (
	"time"
)

// Chunk type values emitted by the n8n AI Agent streaming format.
const (
	ChunkTypeStart = "start"
	ChunkTypeItem  = "item"
	ChunkTypeEnd   = "end"

	// ChunkTypeUnknown is assigned when a line carries no "type" field.
	// Lines with an unrecognized type keep their original value and are
	// counted as unknown in Stats.
	ChunkTypeUnknown = "unknown"
)

// Chunk is a single parsed unit from the stream. It is immutable once
// constructed; Content is meaningful only for item chunks.
type Chunk struct {
	Type     string
	Content  string
	Metadata map[string]any

	// Raw is the original line, kept for diagnostics.
	Raw string

	// Timestamp is decoded from metadata.timestamp (milliseconds since
	// epoch) when present and numeric; zero otherwise.
	Timestamp time.Time
}

// NodeID returns the metadata.nodeId value, or "" if absent.
func (c *Chunk) NodeID() string {
	id, _ := c.Metadata["nodeId"].(string)
	return id
}

// IsItem reports whether this is a content-bearing item chunk.
func (c *Chunk) IsItem() bool {
	return c.Type == ChunkTypeItem
}

// chunkTimestamp extracts a timestamp from chunk metadata. n8n sends
// millisecond epoch values; JSON numbers decode as float64.
func chunkTimestamp(metadata map[string]any) time.Time {
	raw, ok := metadata["timestamp"]
	if !ok {
		return time.Time{}
	}

	var ms int64
	switch v := raw.(type) {
	case float64:
		ms = int64(v)
	case int64:
		ms = v
	case int:
		ms = int64(v)
	default:
		return time.Time{}
	}

	return time.UnixMilli(ms)
}
