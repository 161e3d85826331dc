package core

import (
	"slices"
	"time"
)

type (
	User struct {
		Username     string
		FullName     string
		PasswordHash string
		Enabled      bool
		Roles        []Role
	}

	Session struct {
		SID       string
		Username  string
		FullName  string
		CreatedAt time.Time
		ExpiresAt time.Time
	}
)

// HasRole reports whether the user holds role r.
func (u User) HasRole(r Role) bool {
	return slices.Contains(u.Roles, r)
}

// Expired reports whether the session is no longer valid at t.
func (s Session) Expired(t time.Time) bool {
	return !s.ExpiresAt.IsZero() && !t.Before(s.ExpiresAt)
}
