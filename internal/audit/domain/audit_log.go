// Package domain defines audit trail entries for security-relevant actions.
package domain

import "time"

// Entry records one security-relevant action against an account. AccountID may
// be empty for actions that never resolved to an account, such as a rejected
// login for an unknown user.
type Entry struct {
	ID        string
	AccountID string
	Action    string
	IP        string
	Metadata  map[string]string
	CreatedAt time.Time
}

// Actions recorded by the auth flows.
const (
	ActionLogin            = "login"
	ActionLoginFailed      = "login_failed"
	ActionRefresh          = "refresh"
	ActionRefreshRejected  = "refresh_rejected"
	ActionLogout           = "logout"
	ActionRegister         = "register"
	ActionConfirmEmail     = "confirm_email"
	ActionPasswordRecovery = "password_recovery"
	ActionPasswordChanged  = "password_changed"
	ActionDeviceRevoked    = "device_revoked"
	ActionDevicesRevoked   = "devices_revoked"
)
