// ABOUTME: Context helpers for carrying the authenticated user through requests
// ABOUTME: Provides WithUser/UserFromContext with an unexported key type

package auth

import "context"

type contextKey struct{}

var userKey contextKey

// WithUser returns a new context carrying the authenticated user name
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext extracts the authenticated user from the context.
// Returns the empty string if no user is attached.
func UserFromContext(ctx context.Context) string {
	user, _ := ctx.Value(userKey).(string)
	return user
}
