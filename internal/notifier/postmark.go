package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

// PostmarkConfig holds the credentials and addressing for Postmark delivery.
type PostmarkConfig struct {
	ServerToken  string
	AccountToken string
	SenderEmail  string
	SupportEmail string
}

// PostmarkNotifier sends email through Postmark's transactional API.
type PostmarkNotifier struct {
	client *postmark.Client
	config PostmarkConfig
}

// NewPostmarkNotifier validates the config and returns a Postmark-backed notifier.
func NewPostmarkNotifier(cfg PostmarkConfig) (*PostmarkNotifier, error) {
	if cfg.ServerToken == "" {
		return nil, errors.New("postmark: server token is required")
	}
	if cfg.AccountToken == "" {
		return nil, errors.New("postmark: account token is required")
	}
	if cfg.SenderEmail == "" {
		return nil, errors.New("postmark: sender email is required")
	}
	if cfg.SupportEmail == "" {
		cfg.SupportEmail = cfg.SenderEmail
	}
	return &PostmarkNotifier{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		config: cfg,
	}, nil
}

// Send delivers one email. Reply-To goes to the support address so user
// responses reach a monitored mailbox.
func (n *PostmarkNotifier) Send(ctx context.Context, to, subject, htmlBody string) error {
	resp, err := n.client.SendEmail(ctx, postmark.Email{
		From:     n.config.SenderEmail,
		ReplyTo:  n.config.SupportEmail,
		To:       to,
		Subject:  subject,
		HTMLBody: htmlBody,
	})
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrSendFailed, fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}
