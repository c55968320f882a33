// ABOUTME: Tests for HTTP JWT middleware
// ABOUTME: Covers bearer extraction, valid/invalid tokens, and optional auth

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testVerifier() *JWTVerifier {
	return NewJWTVerifier([]byte("test-secret-key-for-jwt-signing"))
}

func echoUserHandler(t *testing.T, wantUser string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := UserFromContext(r.Context()); got != wantUser {
			t.Errorf("UserFromContext() = %q, want %q", got, wantUser)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_ValidToken(t *testing.T) {
	verifier := testVerifier()
	token, err := verifier.Generate("alice", time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	handler := Middleware(verifier)(echoUserHandler(t, "alice"))

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestMiddleware_RejectsBadHeaders(t *testing.T) {
	verifier := testVerifier()
	handler := Middleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic YWxpY2U6c2VjcmV0"},
		{name: "empty token", header: "Bearer "},
		{name: "garbage token", header: "Bearer not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestMiddleware_RejectsExpiredToken(t *testing.T) {
	verifier := testVerifier()
	token, err := verifier.Generate("alice", -time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	handler := Middleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestOptionalMiddleware_AnonymousPassesThrough(t *testing.T) {
	verifier := testVerifier()
	handler := OptionalMiddleware(verifier)(echoUserHandler(t, ""))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestOptionalMiddleware_ValidTokenAttachesUser(t *testing.T) {
	verifier := testVerifier()
	token, err := verifier.Generate("bob", time.Hour)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	handler := OptionalMiddleware(verifier)(echoUserHandler(t, "bob"))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestOptionalMiddleware_InvalidTokenIsAnonymous(t *testing.T) {
	verifier := testVerifier()
	handler := OptionalMiddleware(verifier)(echoUserHandler(t, ""))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestUserFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := UserFromContext(req.Context()); got != "" {
		t.Errorf("UserFromContext() = %q, want empty", got)
	}
}
