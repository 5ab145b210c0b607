package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"projectgoat/internal/auth/domain/model"
	apperrors "projectgoat/internal/shared/errors"
)

// MemoryAuthRepository is an in-memory AuthRepository for tests. It
// mirrors the MongoDB adapter's error mapping so usecase and handler
// tests exercise the same failure paths the real adapter produces.
type MemoryAuthRepository struct {
	mu       sync.RWMutex
	users    map[string]*model.User    // keyed by ID
	sessions map[string]*model.Session // keyed by ID
	attempts []*model.LoginAttempt
}

// NewMemoryAuthRepository creates an empty in-memory repository
func NewMemoryAuthRepository() *MemoryAuthRepository {
	return &MemoryAuthRepository{
		users:    make(map[string]*model.User),
		sessions: make(map[string]*model.Session),
	}
}

func (r *MemoryAuthRepository) CreateUser(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return apperrors.ErrEmailTaken
		}
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *MemoryAuthRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (r *MemoryAuthRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *MemoryAuthRepository) UpdateUser(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return apperrors.ErrUserNotFound
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *MemoryAuthRepository) UpdatePassword(ctx context.Context, userID, passwordHash string, changedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.PasswordChangedAt = &changedAt
	u.UpdatedAt = changedAt
	return nil
}

func (r *MemoryAuthRepository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	u.LastLoginAt = &at
	return nil
}

func (r *MemoryAuthRepository) CreateSession(ctx context.Context, session *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *session
	r.sessions[session.ID] = &clone
	return nil
}

func (r *MemoryAuthRepository) GetSessionByID(ctx context.Context, id string) (*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	clone := *s
	return &clone, nil
}

func (r *MemoryAuthRepository) TouchSession(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return apperrors.ErrSessionNotFound
	}
	s.LastActivityAt = at
	return nil
}

func (r *MemoryAuthRepository) UpdateSessionCSRF(ctx context.Context, id, csrfToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return apperrors.ErrSessionNotFound
	}
	s.CSRFToken = csrfToken
	return nil
}

func (r *MemoryAuthRepository) DeleteSession(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return apperrors.ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *MemoryAuthRepository) DeleteUserSessions(ctx context.Context, userID, exceptSessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.UserID == userID && id != exceptSessionID {
			delete(r.sessions, id)
		}
	}
	return nil
}

func (r *MemoryAuthRepository) RecordLoginAttempt(ctx context.Context, attempt *model.LoginAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *attempt
	r.attempts = append(r.attempts, &clone)
	return nil
}

func (r *MemoryAuthRepository) RecentFailures(ctx context.Context, email string, since time.Time) ([]time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []time.Time
	for _, a := range r.attempts {
		if strings.EqualFold(a.Email, email) && !a.Success && a.AttemptedAt.After(since) {
			out = append(out, a.AttemptedAt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].After(out[j]) })
	return out, nil
}

func (r *MemoryAuthRepository) ClearFailedAttempts(ctx context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.attempts[:0]
	for _, a := range r.attempts {
		if a.Success || !strings.EqualFold(a.Email, email) {
			kept = append(kept, a)
		}
	}
	r.attempts = kept
	return nil
}

func (r *MemoryAuthRepository) DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.attempts[:0]
	for _, a := range r.attempts {
		if !a.AttemptedAt.Before(cutoff) {
			kept = append(kept, a)
		}
	}
	r.attempts = kept
	return nil
}

// SessionCount reports how many sessions the store currently holds.
func (r *MemoryAuthRepository) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// AttemptCount reports how many login attempts were recorded.
func (r *MemoryAuthRepository) AttemptCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.attempts)
}
