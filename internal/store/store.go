// ABOUTME: Store interface and data types for chatrelay persistence
// ABOUTME: Defines ChatSession, Message structs and the Store interface

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateSession is returned when trying to create a session that already exists
var ErrDuplicateSession = errors.New("session already exists")

// ChatSession represents one conversation keyed by the sessionId value
// sent to the webhook. A session row is created the first time a
// session id is seen on any transport (web UI, WebSocket, REST).
type ChatSession struct {
	ID        string
	User      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Sender constants for message rows
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Message represents a single message within a session for history purposes
type Message struct {
	ID        string
	SessionID string
	Sender    string // "user" or "assistant"
	Content   string
	CreatedAt time.Time
}

// Store defines the interface for session and message persistence
type Store interface {
	// Sessions
	CreateSession(ctx context.Context, session *ChatSession) error
	GetSession(ctx context.Context, id string) (*ChatSession, error)
	TouchSession(ctx context.Context, id string, at time.Time) error
	ListSessions(ctx context.Context, limit int) ([]*ChatSession, error)

	// Messages (for history)
	SaveMessage(ctx context.Context, msg *Message) error
	GetSessionMessages(ctx context.Context, sessionID string, limit int) ([]*Message, error)

	// Close releases any resources held by the store
	Close() error
}
