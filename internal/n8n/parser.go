// ABOUTME: Line parser for n8n AI Agent streaming responses
// ABOUTME: Accumulates chunks, running content, and per-type statistics for one stream

package n8n

import (
	"encoding/json"
	"strings"
	"time"
)

// Stats summarizes one stream as seen by a Parser.
type Stats struct {
	TotalChunks   int
	ItemChunks    int
	StartChunks   int
	EndChunks     int
	UnknownChunks int

	// ParseErrors counts lines that were not valid JSON. Empty lines are
	// skipped without counting.
	ParseErrors int

	ContentLength int
	HasStart      bool
	HasEnd        bool

	// Duration is the elapsed time since the first chunk was parsed,
	// zero if nothing has been parsed yet.
	Duration time.Duration
}

// Parser converts raw lines from a webhook response body into Chunks and
// tracks running state across the lifetime of one stream. It is a pure
// transform: malformed input is swallowed as a counted soft error, never
// a failure. Not safe for concurrent use; each stream gets its own
// Parser (or calls Reset between streams).
type Parser struct {
	chunks      []*Chunk
	content     strings.Builder
	parseErrors int
	firstChunk  time.Time

	// now is overridable for tests.
	now func() time.Time
}

// NewParser creates a Parser ready for a new stream.
func NewParser() *Parser {
	return &Parser{now: time.Now}
}

// line mirrors the webhook wire format: newline-delimited JSON objects
// {"type": ..., "content"?: ..., "metadata"?: {...}}.
type line struct {
	Type     string         `json:"type"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// ParseLine parses a single line from the stream. It returns nil for
// empty lines (no state change) and for lines that fail to decode as
// JSON (error counter incremented). A successful parse appends the
// chunk, updates counts, and, for item chunks, appends the content to
// the running buffer.
func (p *Parser) ParseLine(raw string) *Chunk {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	var l line
	if err := json.Unmarshal([]byte(trimmed), &l); err != nil {
		p.parseErrors++
		return nil
	}

	chunkType := l.Type
	if chunkType == "" {
		chunkType = ChunkTypeUnknown
	}
	metadata := l.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	chunk := &Chunk{
		Type:      chunkType,
		Content:   l.Content,
		Metadata:  metadata,
		Raw:       trimmed,
		Timestamp: chunkTimestamp(metadata),
	}

	if p.firstChunk.IsZero() {
		p.firstChunk = p.now()
	}

	p.chunks = append(p.chunks, chunk)
	if chunk.IsItem() {
		p.content.WriteString(chunk.Content)
	}

	return chunk
}

// CompleteContent returns the assembled content of all item chunks seen
// so far, in arrival order. Callable at any point; idempotent.
func (p *Parser) CompleteContent() string {
	return p.content.String()
}

// Chunks returns all chunks parsed since the last Reset, in order.
func (p *Parser) Chunks() []*Chunk {
	return p.chunks
}

// StreamStats returns statistics about the stream so far.
func (p *Parser) StreamStats() Stats {
	stats := Stats{
		TotalChunks:   len(p.chunks),
		ParseErrors:   p.parseErrors,
		ContentLength: len(p.CompleteContent()),
	}

	for _, c := range p.chunks {
		switch c.Type {
		case ChunkTypeItem:
			stats.ItemChunks++
		case ChunkTypeStart:
			stats.StartChunks++
			stats.HasStart = true
		case ChunkTypeEnd:
			stats.EndChunks++
			stats.HasEnd = true
		default:
			stats.UnknownChunks++
		}
	}

	if !p.firstChunk.IsZero() {
		stats.Duration = p.now().Sub(p.firstChunk)
	}

	return stats
}

// SessionInfo extracts session metadata from the stream: the start
// chunk's metadata merged at the top level, with the end chunk's
// metadata nested under "end_metadata".
func (p *Parser) SessionInfo() map[string]any {
	info := map[string]any{}
	for _, c := range p.chunks {
		switch c.Type {
		case ChunkTypeStart:
			for k, v := range c.Metadata {
				info[k] = v
			}
		case ChunkTypeEnd:
			info["end_metadata"] = c.Metadata
		}
	}
	return info
}

// FilterByType returns all chunks with the given type.
func (p *Parser) FilterByType(chunkType string) []*Chunk {
	var out []*Chunk
	for _, c := range p.chunks {
		if c.Type == chunkType {
			out = append(out, c)
		}
	}
	return out
}

// FilterByNode returns all chunks whose metadata.nodeId matches.
func (p *Parser) FilterByNode(nodeID string) []*Chunk {
	var out []*Chunk
	for _, c := range p.chunks {
		if c.NodeID() == nodeID {
			out = append(out, c)
		}
	}
	return out
}

// ContentByNode returns the assembled item content produced by a
// specific workflow node.
func (p *Parser) ContentByNode(nodeID string) string {
	var b strings.Builder
	for _, c := range p.chunks {
		if c.IsItem() && c.NodeID() == nodeID {
			b.WriteString(c.Content)
		}
	}
	return b.String()
}

// Reset clears all accumulated state so the Parser can be reused for a
// new stream.
func (p *Parser) Reset() {
	p.chunks = nil
	p.content.Reset()
	p.parseErrors = 0
	p.firstChunk = time.Time{}
}
