// ABOUTME: Tests for SQLite store implementation
// ABOUTME: Covers session CRUD, message persistence, and ordering

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	return store
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	// Verify the database file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestCreateAndGetSession(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	session := &ChatSession{
		ID:        "session-123",
		User:      "alice",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}

	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := store.GetSession(ctx, "session-123")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}

	if got.ID != session.ID {
		t.Errorf("ID mismatch: got %q, want %q", got.ID, session.ID)
	}
	if got.User != session.User {
		t.Errorf("User mismatch: got %q, want %q", got.User, session.User)
	}
	if !got.CreatedAt.Equal(session.CreatedAt) {
		t.Errorf("CreatedAt mismatch: got %v, want %v", got.CreatedAt, session.CreatedAt)
	}
	if !got.UpdatedAt.Equal(session.UpdatedAt) {
		t.Errorf("UpdatedAt mismatch: got %v, want %v", got.UpdatedAt, session.UpdatedAt)
	}
}

func TestCreateSession_Duplicate(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	session := &ChatSession{
		ID:        "session-dup",
		User:      "alice",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if err := store.CreateSession(ctx, session); err != ErrDuplicateSession {
		t.Errorf("expected ErrDuplicateSession, got %v", err)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	_, err := store.GetSession(ctx, "nonexistent")
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTouchSession(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	session := &ChatSession{
		ID:        "session-touch",
		User:      "alice",
		CreatedAt: created,
		UpdatedAt: created,
	}

	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	touched := created.Add(5 * time.Minute)
	if err := store.TouchSession(ctx, "session-touch", touched); err != nil {
		t.Fatalf("TouchSession failed: %v", err)
	}

	got, err := store.GetSession(ctx, "session-touch")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if !got.UpdatedAt.Equal(touched) {
		t.Errorf("UpdatedAt mismatch: got %v, want %v", got.UpdatedAt, touched)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed: got %v, want %v", got.CreatedAt, created)
	}
}

func TestTouchSession_NotFound(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	err := store.TouchSession(ctx, "nonexistent", time.Now().UTC())
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListSessions_OrderedByUpdated(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	// Create sessions with staggered updated_at timestamps
	for i, id := range []string{"session-a", "session-b", "session-c"} {
		session := &ChatSession{
			ID:        id,
			User:      "alice",
			CreatedAt: base,
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.CreateSession(ctx, session); err != nil {
			t.Fatalf("CreateSession(%s) failed: %v", id, err)
		}
	}

	sessions, err := store.ListSessions(ctx, 10)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}

	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}

	// Most recently updated first
	want := []string{"session-c", "session-b", "session-a"}
	for i, id := range want {
		if sessions[i].ID != id {
			t.Errorf("sessions[%d].ID = %q, want %q", i, sessions[i].ID, id)
		}
	}
}

func TestListSessions_Limit(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		session := &ChatSession{
			ID:        string(rune('a' + i)),
			User:      "alice",
			CreatedAt: base,
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.CreateSession(ctx, session); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}

	sessions, err := store.ListSessions(ctx, 2)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(sessions))
	}
}

func TestSaveAndGetMessages(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	session := &ChatSession{
		ID:        "session-msgs",
		User:      "alice",
		CreatedAt: base,
		UpdatedAt: base,
	}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	messages := []*Message{
		{ID: "msg-1", SessionID: "session-msgs", Sender: SenderUser, Content: "hello", CreatedAt: base},
		{ID: "msg-2", SessionID: "session-msgs", Sender: SenderAssistant, Content: "hi there", CreatedAt: base.Add(time.Second)},
		{ID: "msg-3", SessionID: "session-msgs", Sender: SenderUser, Content: "how are you", CreatedAt: base.Add(2 * time.Second)},
	}
	for _, msg := range messages {
		if err := store.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("SaveMessage(%s) failed: %v", msg.ID, err)
		}
	}

	got, err := store.GetSessionMessages(ctx, "session-msgs", 100)
	if err != nil {
		t.Fatalf("GetSessionMessages failed: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}

	// Chronological order
	for i, want := range messages {
		if got[i].ID != want.ID {
			t.Errorf("messages[%d].ID = %q, want %q", i, got[i].ID, want.ID)
		}
		if got[i].Sender != want.Sender {
			t.Errorf("messages[%d].Sender = %q, want %q", i, got[i].Sender, want.Sender)
		}
		if got[i].Content != want.Content {
			t.Errorf("messages[%d].Content = %q, want %q", i, got[i].Content, want.Content)
		}
	}
}

func TestGetSessionMessages_Empty(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	session := &ChatSession{
		ID:        "session-empty",
		User:      "alice",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := store.GetSessionMessages(ctx, "session-empty", 100)
	if err != nil {
		t.Fatalf("GetSessionMessages failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no messages, got %d", len(got))
	}
}
