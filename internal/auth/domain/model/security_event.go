package model

import "time"

// Security event types published on the event bus and persisted to the
// audit store.
const (
	EventLoginSucceeded  = "auth.login_succeeded"
	EventLoginFailed     = "auth.login_failed"
	EventLoginLocked     = "auth.login_locked"
	EventLogout          = "auth.logout"
	EventSessionExpired  = "auth.session_expired"
	EventPasswordChanged = "auth.password_changed"
	EventUserRegistered  = "auth.user_registered"
)

// SecurityEvent is an audit record for authentication activity.
type SecurityEvent struct {
	Type      string    `json:"type"`
	Email     string    `json:"email,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
