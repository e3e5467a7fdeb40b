// Package notifier delivers transactional email to users.
package notifier

import (
	"context"
	"errors"
	"log"
)

// ErrSendFailed wraps delivery failures from the underlying provider.
var ErrSendFailed = errors.New("failed to send email")

// Notifier sends a single email message.
type Notifier interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// LogNotifier writes messages to the process log instead of delivering them.
// Used in development and tests when no email provider is configured.
type LogNotifier struct{}

func (LogNotifier) Send(ctx context.Context, to, subject, htmlBody string) error {
	log.Printf("notifier: to=%s subject=%q body=%q", to, subject, htmlBody)
	return nil
}
