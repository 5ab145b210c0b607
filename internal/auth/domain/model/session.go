package model

import "time"

// ExpiryState classifies a session's validity at a point in time.
type ExpiryState int

const (
	SessionActive ExpiryState = iota
	SessionIdleExpired
	SessionAbsoluteExpired
)

// Session is a server-side session record. The ID is an opaque random
// token; the CSRF token is session-scoped and regenerated only on
// password change.
type Session struct {
	ID               string    `json:"id" bson:"_id"`
	UserID           string    `json:"user_id" bson:"user_id"`
	CSRFToken        string    `json:"-" bson:"csrf_token"`
	IPAddress        string    `json:"ip_address,omitempty" bson:"ip_address,omitempty"`
	UserAgent        string    `json:"user_agent,omitempty" bson:"user_agent,omitempty"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at"`
	LastActivityAt   time.Time `json:"last_activity_at" bson:"last_activity_at"`
	AbsoluteExpiryAt time.Time `json:"absolute_expiry_at" bson:"absolute_expiry_at"`
}

// State evaluates the compound expiry rule. Absolute expiry wins over
// idle expiry: once the absolute deadline passes, no amount of recent
// activity keeps the session alive.
func (s *Session) State(now time.Time, idleTimeout time.Duration) ExpiryState {
	if !now.Before(s.AbsoluteExpiryAt) {
		return SessionAbsoluteExpired
	}
	if now.Sub(s.LastActivityAt) >= idleTimeout {
		return SessionIdleExpired
	}
	return SessionActive
}

// IsValid reports whether the session is usable at the given instant:
// now < absolute expiry AND now - last activity < idle timeout.
func (s *Session) IsValid(now time.Time, idleTimeout time.Duration) bool {
	return s.State(now, idleTimeout) == SessionActive
}
