// Package auth provides optional JWT authentication for the REST API.
//
// # Overview
//
// Authentication is opt-in: when no API token secret is configured the
// server skips the middleware entirely and every endpoint is open. When
// a secret is set, /api/* endpoints require an HS256-signed bearer
// token whose "sub" claim names the calling user.
//
// # Usage
//
//	verifier := auth.NewJWTVerifier([]byte(secret))
//	token, _ := verifier.Generate("alice", 24*time.Hour)
//
//	mux.Handle("/api/", auth.Middleware(verifier)(apiHandler))
//
// Handlers read the authenticated user with [UserFromContext].
package auth
