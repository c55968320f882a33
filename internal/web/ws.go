// ABOUTME: WebSocket endpoint for real-time chat streaming
// ABOUTME: Gorilla upgrade plus read/write loops relaying webhook chunks

package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sungyup/chatrelay/internal/n8n"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Accept any origin. The relay fronts a personal chat page and
	// non-browser clients; sessions are addressed by unguessable ids
	// and the REST surface carries its own auth.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsFrame is a server-to-client frame. Type is one of "ack", "chunk",
// "complete", or "error".
type wsFrame struct {
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	Message   string `json:"message,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

// wsInbound is a client-to-server chat message
type wsInbound struct {
	Message string `json:"message"`
	User    string `json:"user"`
}

func newFrame(frameType string) *wsFrame {
	return &wsFrame{
		Type:      frameType,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// handleWebSocket upgrades GET /ws/{session_id} and runs the chat loop
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "session_id", sessionID, "error", err)
		return
	}

	client := s.hub.register(sessionID, "")
	s.logger.Info("websocket connected", "session_id", sessionID)

	go s.writeLoop(conn, client)
	s.readLoop(conn, client)

	s.hub.unregister(sessionID, client)
	s.logger.Info("websocket disconnected", "session_id", sessionID)
}

// readLoop reads chat messages from the client until the connection drops
func (s *Server) readLoop(conn *websocket.Conn, client *wsClient) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msgBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket read error", "session_id", client.sessionID, "error", err)
			}
			return
		}

		var inbound wsInbound
		if err := json.Unmarshal(msgBytes, &inbound); err != nil {
			s.logger.Warn("invalid websocket message", "session_id", client.sessionID, "error", err)
			continue
		}
		if inbound.User == "" {
			inbound.User = "anonymous"
		}

		client.mu.Lock()
		client.user = inbound.User
		client.lastUsed = time.Now()
		client.mu.Unlock()
		s.relayMessage(client, &inbound)
	}
}

// writeLoop drains the client's send channel onto the connection
func (s *Server) writeLoop(conn *websocket.Conn, client *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case frame, ok := <-client.send:
			if !ok {
				conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
				return
			}

			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(frame); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// relayMessage acknowledges an inbound chat message, streams the webhook
// response back as chunk frames, and records both sides in the store.
func (s *Server) relayMessage(client *wsClient, inbound *wsInbound) {
	ack := newFrame("ack")
	ack.Message = "Processing your message..."
	client.enqueue(ack)

	ctx := client.ctx
	s.recordUserMessage(ctx, client.sessionID, inbound.User, inbound.Message)

	payload := webhookPayload(client.sessionID, inbound.Message, inbound.User)

	err := s.relay.ProcessStream(ctx, payload, n8n.Callbacks{
		OnChunk: func(chunk *n8n.Chunk, content string) {
			if chunk.Content == "" {
				return
			}
			frame := newFrame("chunk")
			frame.Content = chunk.Content
			client.enqueue(frame)
		},
		OnComplete: func(content string, metadata map[string]any) {
			s.recordAssistantMessage(ctx, client.sessionID, content)

			frame := newFrame("complete")
			frame.Message = content
			frame.SessionID = client.sessionID
			client.enqueue(frame)
		},
		OnError: func(err error) {
			frame := newFrame("error")
			frame.Message = "Error processing message: " + err.Error()
			client.enqueue(frame)
		},
	})
	if err != nil {
		s.logger.Warn("webhook stream failed", "session_id", client.sessionID, "error", err)
	}
}

// webhookPayload builds the JSON body sent to the n8n webhook. The
// message is duplicated under chatInput for the n8n chat trigger node.
func webhookPayload(sessionID, message, user string) map[string]any {
	return map[string]any{
		"sessionId": sessionID,
		"chatInput": message,
		"message":   message,
		"user":      user,
		"timestamp": time.Now().Format(time.RFC3339),
	}
}
