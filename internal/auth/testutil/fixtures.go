package testutil

import (
	"time"

	"projectgoat/internal/auth/domain/model"

	"golang.org/x/crypto/bcrypt"
)

// UserFixture provides test data for User model
type UserFixture struct{}

// NewUserFixture creates a new UserFixture instance
func NewUserFixture() *UserFixture {
	return &UserFixture{}
}

// ValidUser returns an active user whose password is "Str0ng!pass"
func (f *UserFixture) ValidUser() *model.User {
	return f.UserWithPassword("sarah@example.com", "Str0ng!pass")
}

// UserWithEmail returns an active user with the given email and the
// default password "Str0ng!pass"
func (f *UserFixture) UserWithEmail(email string) *model.User {
	return f.UserWithPassword(email, "Str0ng!pass")
}

// UserWithPassword returns an active user with specific credentials
func (f *UserFixture) UserWithPassword(email, password string) *model.User {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	now := time.Now()
	return &model.User{
		ID:           "user-" + email,
		Name:         "Test User",
		Email:        email,
		Role:         "member",
		PasswordHash: string(hashedPassword),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// SessionFixture provides test data for Session model
type SessionFixture struct{}

// NewSessionFixture creates a new SessionFixture instance
func NewSessionFixture() *SessionFixture {
	return &SessionFixture{}
}

// SessionForUser returns a fresh session for the user, created at the
// given instant with an 8 hour absolute lifetime.
func (f *SessionFixture) SessionForUser(userID string, createdAt time.Time) *model.Session {
	return &model.Session{
		ID:               "session-for-" + userID,
		UserID:           userID,
		CSRFToken:        "csrf-for-" + userID,
		CreatedAt:        createdAt,
		LastActivityAt:   createdAt,
		AbsoluteExpiryAt: createdAt.Add(8 * time.Hour),
	}
}
