// Package domain defines the account entity of the user directory.
package domain

import (
	"errors"
	"regexp"
	"time"
)

// User is a registered account. PasswordHash is an opaque bcrypt digest;
// Confirmed flips to true once the email-confirmation code is consumed.
type User struct {
	ID           string
	Login        string
	Email        string
	PasswordHash string
	Confirmed    bool
	CreatedAt    time.Time
}

var (
	loginRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailRe = regexp.MustCompile(`^[\w.-]+@([\w-]+\.)+[\w-]{2,4}$`)
)

// ValidateLogin checks the login shape: 3–10 chars of [a-zA-Z0-9_-].
func ValidateLogin(login string) error {
	if len(login) < 3 || len(login) > 10 || !loginRe.MatchString(login) {
		return errors.New("login must be 3-10 characters of letters, digits, _ or -")
	}
	return nil
}

// ValidateEmail checks the email shape.
func ValidateEmail(email string) error {
	if !emailRe.MatchString(email) {
		return errors.New("invalid email format")
	}
	return nil
}

// ValidatePassword checks the password length bounds (6–20 chars).
func ValidatePassword(password string) error {
	if len(password) < 6 || len(password) > 20 {
		return errors.New("password must be 6-20 characters")
	}
	return nil
}
