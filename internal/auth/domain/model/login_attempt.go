package model

import "time"

// LoginAttempt is an append-only record of a single login attempt,
// read by the rate limiter to compute rolling window counts.
type LoginAttempt struct {
	ID            string    `json:"id" bson:"_id"`
	Email         string    `json:"email" bson:"email"`
	IPAddress     string    `json:"ip_address,omitempty" bson:"ip_address,omitempty"`
	UserAgent     string    `json:"user_agent,omitempty" bson:"user_agent,omitempty"`
	AttemptedAt   time.Time `json:"attempted_at" bson:"attempted_at"`
	Success       bool      `json:"success" bson:"success"`
	FailureReason string    `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
}
