// Package domain defines the device session entity.
package domain

import "time"

// Session is the live binding of an account to one device. There is at most one
// session per (AccountID, DeviceID); IssuedAt mirrors the issuance time of the
// refresh token most recently accepted for the device and is the sole replay
// check during rotation.
type Session struct {
	AccountID string
	DeviceID  string
	IssuedAt  time.Time
	ExpiresAt time.Time
	IP        string
	Title     string
	CreatedAt time.Time
}

// Rotation carries the replacement values applied to a session when a refresh
// token is exchanged.
type Rotation struct {
	IssuedAt  time.Time
	ExpiresAt time.Time
	IP        string
	Title     string
}

// Expired reports whether the session is past its absolute expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
