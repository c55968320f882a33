// ABOUTME: Tests for the WebSocket chat endpoint and hub
// ABOUTME: Dials real connections and checks the ack/chunk/complete flow

package web

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sungyup/chatrelay/internal/store"
)

func dialWS(t *testing.T, baseURL, sessionID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/ws/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var frame wsFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestWebSocket_ChatFlow(t *testing.T) {
	relay := &fakeRelay{chunks: []string{"Hello ", "world"}}
	_, st, ts := newTestServer(t, relay, nil)

	conn := dialWS(t, ts.URL, "ws-session-1")
	require.NoError(t, conn.WriteJSON(wsInbound{Message: "hi", User: "alice"}))

	ack := readFrame(t, conn)
	assert.Equal(t, "ack", ack.Type)
	assert.NotEmpty(t, ack.Timestamp)

	first := readFrame(t, conn)
	require.Equal(t, "chunk", first.Type)
	assert.Equal(t, "Hello ", first.Content)

	second := readFrame(t, conn)
	require.Equal(t, "chunk", second.Type)
	assert.Equal(t, "world", second.Content)

	complete := readFrame(t, conn)
	require.Equal(t, "complete", complete.Type)
	assert.Equal(t, "Hello world", complete.Message)
	assert.Equal(t, "ws-session-1", complete.SessionID)

	// Transcript lands in the store
	require.Eventually(t, func() bool {
		msgs, err := st.GetSessionMessages(context.Background(), "ws-session-1", 10)
		return err == nil && len(msgs) == 2
	}, 2*time.Second, 10*time.Millisecond)

	msgs, err := st.GetSessionMessages(context.Background(), "ws-session-1", 10)
	require.NoError(t, err)
	assert.Equal(t, store.SenderUser, msgs[0].Sender)
	assert.Equal(t, "Hello world", msgs[1].Content)
}

func TestWebSocket_RelayErrorFrame(t *testing.T) {
	relay := &fakeRelay{err: assert.AnError}
	_, _, ts := newTestServer(t, relay, nil)

	conn := dialWS(t, ts.URL, "ws-session-2")
	require.NoError(t, conn.WriteJSON(wsInbound{Message: "hi"}))

	ack := readFrame(t, conn)
	require.Equal(t, "ack", ack.Type)

	errFrame := readFrame(t, conn)
	require.Equal(t, "error", errFrame.Type)
	assert.Contains(t, errFrame.Message, "Error processing message")
}

func TestWebSocket_InvalidJSONIgnored(t *testing.T) {
	relay := &fakeRelay{chunks: []string{"ok"}}
	_, _, ts := newTestServer(t, relay, nil)

	conn := dialWS(t, ts.URL, "ws-session-3")
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	// A valid message afterwards still works
	require.NoError(t, conn.WriteJSON(wsInbound{Message: "hi"}))
	ack := readFrame(t, conn)
	assert.Equal(t, "ack", ack.Type)
}

func TestWebSocket_SessionsEndpointSeesConnection(t *testing.T) {
	relay := &fakeRelay{chunks: []string{"ok"}}
	srv, _, ts := newTestServer(t, relay, nil)

	dialWS(t, ts.URL, "ws-session-4")

	require.Eventually(t, func() bool {
		for _, id := range srv.hub.activeSessions() {
			if id == "ws-session-4" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RegisterReplacesExisting(t *testing.T) {
	h := newHub()
	defer h.Close()

	first := h.register("s1", "alice")
	second := h.register("s1", "alice")

	assert.True(t, first.isClosed())
	assert.False(t, second.isClosed())
	assert.Len(t, h.activeSessions(), 1)
}

func TestHub_UnregisterLeavesNewerClient(t *testing.T) {
	h := newHub()
	defer h.Close()

	first := h.register("s1", "alice")
	second := h.register("s1", "alice")

	// Unregistering the stale client must not evict the newer one
	h.unregister("s1", first)
	assert.Len(t, h.activeSessions(), 1)

	h.unregister("s1", second)
	assert.Empty(t, h.activeSessions())
}

func TestClient_EnqueueAfterCloseFails(t *testing.T) {
	h := newHub()
	defer h.Close()

	client := h.register("s1", "alice")
	client.close()

	assert.False(t, client.enqueue(newFrame("chunk")))
}

func TestClient_EnqueueFullBufferDropsFrame(t *testing.T) {
	h := newHub()
	defer h.Close()

	client := h.register("s1", "alice")
	for i := 0; i < cap(client.send); i++ {
		require.True(t, client.enqueue(newFrame("chunk")))
	}
	assert.False(t, client.enqueue(newFrame("chunk")))
}
