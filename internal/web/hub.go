// ABOUTME: Connection hub tracking active WebSocket chat sessions
// ABOUTME: One client per session id, with periodic stale cleanup

package web

import (
	"context"
	"sync"
	"time"
)

// wsClient represents one connected WebSocket chat client
type wsClient struct {
	mu        sync.RWMutex
	sessionID string
	user      string
	send      chan *wsFrame
	closed    bool
	cancel    context.CancelFunc
	ctx       context.Context
	createdAt time.Time
	lastUsed  time.Time
}

// enqueue safely queues a frame for the write loop.
// Returns false if the client is closed or the buffer is full.
func (c *wsClient) enqueue(frame *wsFrame) bool {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return false
	}
	// Hold the read lock while sending to prevent close during send
	select {
	case c.send <- frame:
		c.mu.RUnlock()
		return true
	default:
		// Buffer full
		c.mu.RUnlock()
		return false
	}
}

// close safely closes the client
func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	close(c.send)
}

// isClosed checks if the client is closed
func (c *wsClient) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// hub manages active WebSocket clients keyed by session id
type hub struct {
	mu      sync.RWMutex
	clients map[string]*wsClient
	cancel  context.CancelFunc
}

func newHub() *hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &hub{
		clients: make(map[string]*wsClient),
		cancel:  cancel,
	}
	go h.cleanupLoop(ctx)
	return h
}

// cleanupLoop periodically removes stale clients
func (h *hub) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.cleanupStale()
		}
	}
}

// cleanupStale removes clients idle for more than 30 minutes
func (h *hub) cleanupStale() {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	staleThreshold := 30 * time.Minute

	for id, client := range h.clients {
		client.mu.RLock()
		idle := now.Sub(client.lastUsed)
		client.mu.RUnlock()

		if idle > staleThreshold {
			client.close()
			delete(h.clients, id)
		}
	}
}

// register adds a client for the given session id, replacing any
// previous connection for the same session.
func (h *hub) register(sessionID, user string) *wsClient {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.clients[sessionID]; ok {
		prev.close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()

	client := &wsClient{
		sessionID: sessionID,
		user:      user,
		send:      make(chan *wsFrame, 64),
		cancel:    cancel,
		ctx:       ctx,
		createdAt: now,
		lastUsed:  now,
	}
	h.clients[sessionID] = client
	return client
}

// unregister removes and closes the client for a session id.
// A newer client registered under the same id is left alone.
func (h *hub) unregister(sessionID string, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.clients[sessionID]; ok && current == client {
		delete(h.clients, sessionID)
	}
	client.close()
}

// activeSessions returns the session ids with a live connection
func (h *hub) activeSessions() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

// Close closes all clients and stops the cleanup goroutine
func (h *hub) Close() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		client.close()
		delete(h.clients, id)
	}
}
