package repository

import (
	"context"
	"time"

	"projectgoat/internal/auth/domain/model"
)

// AuthRepository defines the interface for authentication data operations.
// It is injected into the usecase layer so tests can substitute an
// in-memory fake; nothing in the request path reaches for a singleton.
type AuthRepository interface {
	// User operations
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	UpdatePassword(ctx context.Context, userID, passwordHash string, changedAt time.Time) error
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error

	// Session operations
	CreateSession(ctx context.Context, session *model.Session) error
	GetSessionByID(ctx context.Context, id string) (*model.Session, error)
	// TouchSession sets last_activity_at. A not-found result is an expected
	// race with a concurrent logout and is reported as ErrSessionNotFound.
	TouchSession(ctx context.Context, id string, at time.Time) error
	UpdateSessionCSRF(ctx context.Context, id, csrfToken string) error
	DeleteSession(ctx context.Context, id string) error
	// DeleteUserSessions removes every session for a user, preserving
	// exceptSessionID when non-empty (the session driving a password change).
	DeleteUserSessions(ctx context.Context, userID, exceptSessionID string) error

	// Login attempt operations
	RecordLoginAttempt(ctx context.Context, attempt *model.LoginAttempt) error
	// RecentFailures returns timestamps of failed attempts for the email
	// strictly after since, most recent first.
	RecentFailures(ctx context.Context, email string, since time.Time) ([]time.Time, error)
	ClearFailedAttempts(ctx context.Context, email string) error
	DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) error
}

// AuditStore persists security events for after-the-fact review.
type AuditStore interface {
	StoreEvent(ctx context.Context, event model.SecurityEvent) error
	RecentEvents(ctx context.Context, limit int64) ([]model.SecurityEvent, error)
}
