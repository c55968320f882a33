// ABOUTME: Template rendering for the chat and history pages
// ABOUTME: Renders stored markdown transcripts to HTML with goldmark

package web

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/sungyup/chatrelay/internal/store"
)

// markdown renders assistant responses for the history page. GFM covers
// the tables and strikethrough that n8n agents commonly emit.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// Parsed once so a broken template fails at startup, not mid-request.
var (
	chatTmpl    = template.Must(template.ParseFS(templateFS, "templates/chat.html"))
	historyTmpl = template.Must(template.ParseFS(templateFS, "templates/history.html"))
)

type chatPageData struct {
	Title     string
	SessionID string
}

type historyMessage struct {
	Sender    string
	Content   template.HTML
	CreatedAt string
}

type historyPageData struct {
	Title     string
	SessionID string
	User      string
	Messages  []historyMessage
}

// handleChatPage serves the main chat page with a fresh session id
func (s *Server) handleChatPage(w http.ResponseWriter, r *http.Request) {
	data := chatPageData{
		Title:     "Chat",
		SessionID: uuid.New().String(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := chatTmpl.Execute(w, data); err != nil {
		s.logger.Error("failed to render chat page", "error", err)
	}
}

// handleHistoryPage renders a session transcript as HTML
func (s *Server) handleHistoryPage(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")

	session, err := s.store.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		s.logger.Error("failed to load session", "session_id", sessionID, "error", err)
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}

	messages, err := s.store.GetSessionMessages(r.Context(), sessionID, 500)
	if err != nil {
		s.logger.Error("failed to load messages", "session_id", sessionID, "error", err)
		http.Error(w, "failed to load messages", http.StatusInternalServerError)
		return
	}

	data := historyPageData{
		Title:     "History",
		SessionID: sessionID,
		User:      session.User,
		Messages:  make([]historyMessage, 0, len(messages)),
	}
	for _, msg := range messages {
		data.Messages = append(data.Messages, historyMessage{
			Sender:    msg.Sender,
			Content:   renderMarkdown(msg.Content),
			CreatedAt: msg.CreatedAt.Format(time.RFC3339),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := historyTmpl.Execute(w, data); err != nil {
		s.logger.Error("failed to render history page", "error", err)
	}
}

// renderMarkdown converts message content to HTML. Falls back to
// escaped plain text if conversion fails.
func renderMarkdown(content string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(content), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(content))
	}
	return template.HTML(buf.String())
}
