package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"projectgoat/client"
	apperrors "projectgoat/internal/shared/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAuthServer mimics the API surface the client talks to and records
// the headers it sees.
type fakeAuthServer struct {
	*httptest.Server
	lastSessionHeader string
	lastCSRFHeader    string
}

func newFakeAuthServer(t *testing.T) *fakeAuthServer {
	t.Helper()
	fake := &fakeAuthServer{}

	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	record := func(r *http.Request) {
		fake.lastSessionHeader = r.Header.Get("X-Session-ID")
		fake.lastCSRFHeader = r.Header.Get("X-CSRF-Token")
	}

	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["password"] != "Str0ng!pass" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid email or password"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"sessionId": "session-123",
			"csrfToken": "csrf-123",
			"user":      map[string]string{"id": "user-1", "email": req["email"]},
		})
	})
	mux.HandleFunc("/api/auth/change-password", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":   true,
			"csrfToken": "csrf-rotated",
		})
	})
	mux.HandleFunc("/api/users/me", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		writeJSON(w, http.StatusOK, map[string]string{"id": "user-1", "email": "sarah@example.com"})
	})
	mux.HandleFunc("/api/auth/session", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		writeJSON(w, http.StatusOK, map[string]interface{}{"authenticated": true})
	})
	mux.HandleFunc("/api/expired", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error": "session expired", "reason": "idle_timeout",
		})
	})
	mux.HandleFunc("/api/locked", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "540")
		writeJSON(w, http.StatusTooManyRequests, map[string]string{
			"error": "too many failed login attempts, try again later",
		})
	})

	fake.Server = httptest.NewServer(mux)
	t.Cleanup(fake.Server.Close)
	return fake
}

func TestClient_LoginStoresSessionCredentials(t *testing.T) {
	server := newFakeAuthServer(t)
	c := client.New(server.URL)

	result, err := c.Login(context.Background(), "sarah@example.com", "Str0ng!pass")

	require.NoError(t, err)
	assert.Equal(t, "session-123", result.SessionID)
	assert.Equal(t, "session-123", c.SessionID())
	assert.Equal(t, "csrf-123", c.CSRFToken())
}

func TestClient_LoginFailureMapsToAuthenticationError(t *testing.T) {
	server := newFakeAuthServer(t)
	c := client.New(server.URL)

	_, err := c.Login(context.Background(), "sarah@example.com", "wrong")

	require.Error(t, err)
	assert.True(t, apperrors.IsAuthentication(err))
	assert.Empty(t, c.SessionID())
}

func TestClient_AttachesHeaders(t *testing.T) {
	server := newFakeAuthServer(t)
	c := client.New(server.URL, client.WithSession("session-abc", "csrf-abc"))

	// GET carries the session but not the CSRF token.
	_, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "session-abc", server.lastSessionHeader)
	assert.Empty(t, server.lastCSRFHeader)

	// A mutating request carries both.
	err = c.ChangePassword(context.Background(), "old", "new")
	require.NoError(t, err)
	assert.Equal(t, "session-abc", server.lastSessionHeader)
	assert.Equal(t, "csrf-abc", server.lastCSRFHeader)
}

func TestClient_ChangePasswordAdoptsRotatedCSRFToken(t *testing.T) {
	server := newFakeAuthServer(t)
	c := client.New(server.URL, client.WithSession("session-abc", "csrf-abc"))

	err := c.ChangePassword(context.Background(), "old", "new")

	require.NoError(t, err)
	assert.Equal(t, "csrf-rotated", c.CSRFToken())
	assert.Equal(t, "session-abc", c.SessionID(), "session itself survives")
}

func TestClient_SessionExpiryMapsToReasonCodes(t *testing.T) {
	server := newFakeAuthServer(t)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL+"/api/expired", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	decoded := client.DecodeError(resp)
	require.Error(t, decoded)
	assert.True(t, apperrors.IsSessionExpired(decoded))

	var appErr *apperrors.AppError
	require.ErrorAs(t, decoded, &appErr)
	assert.Equal(t, apperrors.ReasonIdleTimeout, appErr.Code)
}

func TestClient_RateLimitMapsRetryAfter(t *testing.T) {
	server := newFakeAuthServer(t)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL+"/api/locked", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	decoded := client.DecodeError(resp)
	require.Error(t, decoded)
	assert.True(t, apperrors.IsRateLimited(decoded))

	var appErr *apperrors.AppError
	require.ErrorAs(t, decoded, &appErr)
	assert.Equal(t, 540, appErr.Details["retry_after_seconds"])
}
