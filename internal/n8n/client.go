// ABOUTME: Streaming HTTP client for the n8n chat webhook
// ABOUTME: Drives one request/response exchange and fans parsed chunks out to callbacks

package n8n

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	// defaultTimeout bounds the whole exchange when the config does not
	// set one. Matches the original client's 60 second request timeout.
	defaultTimeout = 60 * time.Second

	userAgent = "chatrelay/1.0"

	// maxLineSize is the scanner buffer limit for a single stream line.
	maxLineSize = 1024 * 1024
)

// ErrStatus indicates the webhook answered with a non-2xx status.
var ErrStatus = errors.New("unexpected webhook status")

// Config holds the values the client needs to reach the webhook. It is
// passed in explicitly so instances are independently testable and can
// point at different webhook targets.
type Config struct {
	URL      string
	Username string
	Password string

	// Timeout bounds the full exchange including body streaming.
	// Zero means defaultTimeout.
	Timeout time.Duration
}

// Callbacks receive stream progress. Any field may be nil.
type Callbacks struct {
	// OnChunk fires synchronously for every parsed chunk, in stream
	// order, with the running assembled content.
	OnChunk func(chunk *Chunk, content string)

	// OnComplete fires exactly once when an end chunk arrives or the
	// stream closes cleanly. Metadata carries the start/end chunk
	// metadata under "start" and "end".
	OnComplete func(content string, metadata map[string]any)

	// OnError fires exactly once on transport failure, non-2xx status,
	// timeout, or context cancellation. No other callback fires after.
	OnError func(err error)
}

// Client issues streaming requests against one configured n8n webhook.
// It keeps no state between calls; every ProcessStream gets a fresh
// Parser.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// New creates a Client for the given webhook config. Pass nil logger
// for the default.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger.With("component", "webhook"),
	}
}

// ProcessStream POSTs the payload to the webhook and relays parsed
// chunks to the callbacks. The read loop is sequential: each chunk's
// OnChunk completes before the next line is read. The terminal error,
// if any, is both passed to OnError and returned.
func (c *Client) ProcessStream(ctx context.Context, payload any, cb Callbacks) error {
	parser := NewParser()
	if err := c.stream(ctx, payload, parser, cb); err != nil {
		c.logger.Warn("stream failed", "url", c.cfg.URL, "error", err)
		if cb.OnError != nil {
			cb.OnError(err)
		}
		return err
	}

	if cb.OnComplete != nil {
		cb.OnComplete(parser.CompleteContent(), completionMetadata(parser))
	}
	return nil
}

// stream runs the request/read loop. It returns nil on an end chunk or
// clean EOF; any non-nil error is terminal for this stream.
func (c *Client) stream(ctx context.Context, payload any, parser *Parser, cb Callbacks) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Include a slice of the body for diagnostics; n8n returns a
		// JSON error description on auth and routing failures.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %d %s", ErrStatus, resp.StatusCode, bytes.TrimSpace(detail))
	}

	c.logger.Debug("streaming response started", "url", c.cfg.URL, "status", resp.StatusCode)

	scanner := newLineScanner(resp.Body)
	for scanner.Scan() {
		chunk := parser.ParseLine(scanner.Text())
		if chunk == nil {
			continue
		}

		if cb.OnChunk != nil {
			cb.OnChunk(chunk, parser.CompleteContent())
		}

		if chunk.Type == ChunkTypeEnd {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		// Prefer the cancellation cause when the caller aborted the read.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("reading stream: %w", ctxErr)
		}
		return fmt.Errorf("reading stream: %w", err)
	}

	// Stream closed without an end chunk; treat as clean completion with
	// whatever content accumulated.
	return nil
}

// newLineScanner builds a scanner sized for long single-line JSON
// chunks.
func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(bufio.NewReaderSize(r, 4096))
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	scanner.Split(bufio.ScanLines)
	return scanner
}

// completionMetadata collects the start/end chunk metadata the way the
// completion callback expects it.
func completionMetadata(parser *Parser) map[string]any {
	metadata := map[string]any{}
	for _, c := range parser.Chunks() {
		switch c.Type {
		case ChunkTypeStart:
			metadata["start"] = c.Metadata
		case ChunkTypeEnd:
			metadata["end"] = c.Metadata
		}
	}
	return metadata
}
