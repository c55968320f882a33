// Package store provides session and message persistence for chatrelay.
//
// # Overview
//
// The store keeps one row per chat session (keyed by the sessionId sent
// to the webhook) and the ordered message history within each session.
// User messages are recorded when they arrive; assistant messages are
// recorded once their stream completes.
//
// # Implementations
//
// SQLiteStore is the production implementation, backed by
// modernc.org/sqlite with WAL mode and automatic schema creation:
//
//	s, err := store.NewSQLiteStore("/var/lib/chatrelay/chatrelay.db")
//
// Sentinel errors:
//
//   - ErrNotFound: the requested session does not exist
//   - ErrDuplicateSession: session id already taken
package store
