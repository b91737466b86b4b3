package models

import (
	"time"
)

// User is a registered portal account.
type User struct {
	ID                string
	Username          string
	Email             string // stored lower-cased
	PasswordHash      string
	Role              Role
	ResetTokenHash    *string    // SHA-256 of the mailed reset token; nil when no reset is pending
	ResetTokenExpiry  *time.Time // set together with ResetTokenHash
	PasswordChangedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasPendingReset reports whether a reset token slot is occupied, expired or not.
func (u *User) HasPendingReset() bool {
	return u.ResetTokenHash != nil && u.ResetTokenExpiry != nil
}

// ResetExpiredAt reports whether the pending reset token had expired at t.
func (u *User) ResetExpiredAt(t time.Time) bool {
	if u.ResetTokenExpiry == nil {
		return true
	}
	return t.After(*u.ResetTokenExpiry)
}
