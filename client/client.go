// Package client provides a Go client for the authentication API plus a
// local session activity monitor. The server remains the sole authority
// on session validity; the client only mirrors timeouts for advisory
// warnings.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"projectgoat/internal/auth/domain/model"
	apperrors "projectgoat/internal/shared/errors"
)

// Header names the server expects on authenticated requests.
const (
	headerSessionID = "X-Session-ID"
	headerCSRFToken = "X-CSRF-Token"
)

// Client talks to the authentication API. After Login or Register it
// holds the session credentials and attaches them to every request:
// the session ID always, the CSRF token on mutating methods.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu        sync.RWMutex
	sessionID string
	csrfToken string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSession primes the client with existing session credentials.
func WithSession(sessionID, csrfToken string) Option {
	return func(c *Client) {
		c.sessionID = sessionID
		c.csrfToken = csrfToken
	}
}

// New creates a client for the API at baseURL (e.g. "http://localhost:3000").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionID returns the current session ID, empty when logged out.
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// CSRFToken returns the current CSRF token, empty when logged out.
func (c *Client) CSRFToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.csrfToken
}

// LoginResult mirrors the server's login response.
type LoginResult struct {
	SessionID string      `json:"sessionId"`
	CSRFToken string      `json:"csrfToken"`
	User      *model.User `json:"user"`
}

// SessionStatus mirrors the server's session check response.
type SessionStatus struct {
	User          *model.User `json:"user"`
	Authenticated bool        `json:"authenticated"`
}

// Login authenticates and stores the returned session credentials.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	body := map[string]string{"email": email, "password": password}

	var result LoginResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &result); err != nil {
		return nil, err
	}

	c.setSession(result.SessionID, result.CSRFToken)
	return &result, nil
}

// Register creates an account and stores the returned session credentials.
func (c *Client) Register(ctx context.Context, name, email, password string) (*LoginResult, error) {
	body := map[string]string{"name": name, "email": email, "password": password}

	var result LoginResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", body, &result); err != nil {
		return nil, err
	}

	c.setSession(result.SessionID, result.CSRFToken)
	return &result, nil
}

// Logout invalidates the session server-side and clears local credentials.
func (c *Client) Logout(ctx context.Context) error {
	body := map[string]string{"sessionId": c.SessionID()}
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", body, nil)
	c.setSession("", "")
	return err
}

// CheckSession asks the server whether the session is still live. It
// does not extend the session.
func (c *Client) CheckSession(ctx context.Context) (*SessionStatus, error) {
	var status SessionStatus
	if err := c.do(ctx, http.MethodGet, "/api/auth/session", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ChangePassword rotates the password. On success the server issues a
// fresh CSRF token for this session, which the client stores.
func (c *Client) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	body := map[string]string{
		"currentPassword": currentPassword,
		"newPassword":     newPassword,
	}

	var resp struct {
		Success   bool   `json:"success"`
		CSRFToken string `json:"csrfToken"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/change-password", body, &resp); err != nil {
		return err
	}

	if resp.CSRFToken != "" {
		c.mu.Lock()
		c.csrfToken = resp.CSRFToken
		c.mu.Unlock()
	}
	return nil
}

// CurrentUser fetches the authenticated user's profile. The request
// counts as activity and extends the session's idle window.
func (c *Client) CurrentUser(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, http.MethodGet, "/api/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile updates the authenticated user's profile fields.
func (c *Client) UpdateProfile(ctx context.Context, name, avatar, availability string) (*model.User, error) {
	body := map[string]string{
		"name":         name,
		"avatar":       avatar,
		"availability": availability,
	}

	var user model.User
	if err := c.do(ctx, http.MethodPut, "/api/users/me", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) setSession(sessionID, csrfToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = sessionID
	c.csrfToken = csrfToken
}

// apiError is the wire shape of server error responses.
type apiError struct {
	Error   string                 `json:"error"`
	Reason  string                 `json:"reason,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	sessionID, csrfToken := c.sessionID, c.csrfToken
	c.mu.RUnlock()

	if sessionID != "" {
		req.Header.Set(headerSessionID, sessionID)
	}
	if csrfToken != "" && method != http.MethodGet && method != http.MethodHead {
		req.Header.Set(headerCSRFToken, csrfToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return DecodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// DecodeError maps an error response back onto the shared error
// taxonomy so callers can branch on reason codes the same way server
// code does.
func DecodeError(resp *http.Response) error {
	var payload apiError
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := json.Unmarshal(raw, &payload); err != nil {
		payload.Error = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		switch payload.Reason {
		case apperrors.ReasonIdleTimeout, apperrors.ReasonAbsoluteTimeout, apperrors.ReasonSessionNotFound:
			return apperrors.NewSessionExpiredError(payload.Reason)
		}
		return apperrors.NewAuthenticationError(payload.Error)
	case http.StatusForbidden:
		if payload.Reason == "csrf_mismatch" {
			return apperrors.NewCsrfMismatchError()
		}
		return apperrors.NewAuthorizationError(payload.Error)
	case http.StatusTooManyRequests:
		retryAfter := 0
		if v := resp.Header.Get("Retry-After"); v != "" {
			retryAfter, _ = strconv.Atoi(v)
		}
		return apperrors.NewRateLimitedError(payload.Error, retryAfter)
	case http.StatusNotFound:
		return apperrors.NewNotFoundError(payload.Error)
	case http.StatusConflict:
		return apperrors.NewConflictError(payload.Error)
	case http.StatusBadRequest:
		return apperrors.NewValidationError(payload.Error)
	default:
		return apperrors.NewInternalError(payload.Error)
	}
}
