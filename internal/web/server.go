// ABOUTME: HTTP server for the chat UI, REST API, and session history
// ABOUTME: Relays chat messages to the n8n webhook and persists transcripts

package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sungyup/chatrelay/internal/auth"
	"github.com/sungyup/chatrelay/internal/n8n"
	"github.com/sungyup/chatrelay/internal/store"
)

// StreamRelay is the subset of the webhook client the server depends on
type StreamRelay interface {
	ProcessStream(ctx context.Context, payload any, cb n8n.Callbacks) error
}

// Server handles the chat UI, WebSocket, and REST API routes
type Server struct {
	store    store.Store
	relay    StreamRelay
	hub      *hub
	verifier auth.TokenVerifier
	logger   *slog.Logger
}

// New creates a new web server. verifier may be nil, in which case the
// API endpoints are served without authentication.
func New(st store.Store, relay StreamRelay, verifier auth.TokenVerifier) *Server {
	return &Server{
		store:    st,
		relay:    relay,
		hub:      newHub(),
		verifier: verifier,
		logger:   slog.Default().With("component", "web"),
	}
}

// Close shuts down the connection hub
func (s *Server) Close() {
	s.hub.Close()
}

// RegisterRoutes registers all routes on the given mux
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleChatPage)
	mux.HandleFunc("GET /ws/{session_id}", s.handleWebSocket)
	mux.HandleFunc("GET /history/{session_id}", s.handleHistoryPage)

	// Health stays open so probes work with API auth enabled
	mux.HandleFunc("GET /api/health", s.handleHealth)

	api := http.NewServeMux()
	api.HandleFunc("POST /api/chat", s.handleChat)
	api.HandleFunc("GET /api/sessions", s.handleSessions)
	api.HandleFunc("GET /api/sessions/{session_id}/messages", s.handleSessionMessages)

	var apiHandler http.Handler = api
	if s.verifier != nil {
		apiHandler = auth.Middleware(s.verifier)(api)
	}
	mux.Handle("/api/", apiHandler)
}

// chatRequest is the POST /api/chat request body
type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	User      string `json:"user"`
}

// chatResponse is the POST /api/chat response body
type chatResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

// handleChat relays a single chat message and returns the full response
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeJSONError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}
	if req.User == "" {
		req.User = "anonymous"
	}

	ctx := r.Context()
	s.recordUserMessage(ctx, req.SessionID, req.User, req.Message)

	payload := webhookPayload(req.SessionID, req.Message, req.User)

	var content string
	err := s.relay.ProcessStream(ctx, payload, n8n.Callbacks{
		OnComplete: func(c string, metadata map[string]any) {
			content = c
		},
	})

	resp := chatResponse{
		SessionID: req.SessionID,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if err != nil {
		resp.Message = "Error: " + err.Error()
		resp.Status = "error"
	} else {
		s.recordAssistantMessage(ctx, req.SessionID, content)
		resp.Message = content
		resp.Status = "success"
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleHealth reports liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// sessionInfo is one entry in the GET /api/sessions response
type sessionInfo struct {
	ID        string `json:"id"`
	User      string `json:"user"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	Active    bool   `json:"active"`
}

// handleSessions lists active connections and recent stored sessions
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	active := s.hub.activeSessions()
	activeSet := make(map[string]bool, len(active))
	for _, id := range active {
		activeSet[id] = true
	}

	stored, err := s.store.ListSessions(r.Context(), 50)
	if err != nil {
		s.logger.Error("failed to list sessions", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	sessions := make([]sessionInfo, 0, len(stored))
	for _, sess := range stored {
		sessions = append(sessions, sessionInfo{
			ID:        sess.ID,
			User:      sess.User,
			CreatedAt: sess.CreatedAt.Format(time.RFC3339),
			UpdatedAt: sess.UpdatedAt.Format(time.RFC3339),
			Active:    activeSet[sess.ID],
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"active_sessions": active,
		"count":           len(active),
		"sessions":        sessions,
	})
}

// messageInfo is one entry in the session messages response
type messageInfo struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// handleSessionMessages returns a session's transcript in order
func (s *Server) handleSessionMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")

	if _, err := s.store.GetSession(r.Context(), sessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "session not found")
			return
		}
		s.logger.Error("failed to load session", "session_id", sessionID, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	messages, err := s.store.GetSessionMessages(r.Context(), sessionID, 500)
	if err != nil {
		s.logger.Error("failed to load messages", "session_id", sessionID, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}

	out := make([]messageInfo, 0, len(messages))
	for _, msg := range messages {
		out = append(out, messageInfo{
			ID:        msg.ID,
			Sender:    msg.Sender,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt.Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"messages":   out,
	})
}

// recordUserMessage persists an inbound message, creating the session
// row on first sight. Persistence failures are logged, not fatal: the
// relay still runs without history.
func (s *Server) recordUserMessage(ctx context.Context, sessionID, user, content string) {
	s.ensureSession(ctx, sessionID, user)
	s.saveMessage(ctx, sessionID, store.SenderUser, content)
}

// recordAssistantMessage persists a completed webhook response
func (s *Server) recordAssistantMessage(ctx context.Context, sessionID, content string) {
	if content == "" {
		return
	}
	s.saveMessage(ctx, sessionID, store.SenderAssistant, content)
}

func (s *Server) ensureSession(ctx context.Context, sessionID, user string) {
	now := time.Now()
	err := s.store.CreateSession(ctx, &store.ChatSession{
		ID:        sessionID,
		User:      user,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if errors.Is(err, store.ErrDuplicateSession) {
		err = s.store.TouchSession(ctx, sessionID, now)
	}
	if err != nil {
		s.logger.Warn("failed to record session", "session_id", sessionID, "error", err)
	}
}

func (s *Server) saveMessage(ctx context.Context, sessionID, sender, content string) {
	err := s.store.SaveMessage(ctx, &store.Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Sender:    sender,
		Content:   content,
		CreatedAt: time.Now(),
	})
	if err != nil {
		s.logger.Warn("failed to save message", "session_id", sessionID, "sender", sender, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
