package models

import (
	"time"
)

// Session is a server-side login session identified by an opaque bearer
// token. A session stops being usable either when it is invalidated by
// logout or when ExpiresAt passes; both look identical to callers.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IsActive  bool      `json:"-"`
}

// Expired reports whether the session deadline has passed at now.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
