package model

import "time"

// User represents a member of the workspace
type User struct {
	ID                string     `json:"id" bson:"_id"`
	Name              string     `json:"name" bson:"name"`
	Email             string     `json:"email" bson:"email"`
	Role              string     `json:"role" bson:"role"`
	Avatar            string     `json:"avatar,omitempty" bson:"avatar,omitempty"`
	Availability      string     `json:"availability,omitempty" bson:"availability,omitempty"`
	PasswordHash      string     `json:"-" bson:"password_hash"`
	IsActive          bool       `json:"-" bson:"is_active"`
	PasswordChangedAt *time.Time `json:"-" bson:"password_changed_at,omitempty"`
	LastLoginAt       *time.Time `json:"-" bson:"last_login_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" bson:"updated_at"`
}

// PublicProfile strips everything the API must not return. PasswordHash is
// already excluded from JSON, but handlers return a copy so a future tag
// change cannot leak it.
func (u *User) PublicProfile() *User {
	p := *u
	p.PasswordHash = ""
	return &p
}
