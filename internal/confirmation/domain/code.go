// Package domain defines one-time confirmation codes sent to users over email.
package domain

import "time"

// Purpose distinguishes what a confirmation code unlocks.
type Purpose string

const (
	PurposeEmailConfirm     Purpose = "email-confirm"
	PurposePasswordRecovery Purpose = "password-recovery"
)

// Code is a single-use, time-limited secret bound to one account and purpose.
// Issuing a new code for the same (AccountID, Purpose) supersedes the previous
// one, so only the latest code ever validates.
type Code struct {
	Code      string
	AccountID string
	Purpose   Purpose
	ExpiresAt time.Time
	Confirmed bool
	CreatedAt time.Time
}

// Expired reports whether the code is past its expiry at now.
func (c *Code) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
