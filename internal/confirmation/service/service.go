// Package service issues and validates one-time confirmation codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"blogger-platform/internal/confirmation/domain"
	"blogger-platform/internal/confirmation/repository"
	"blogger-platform/internal/notifier"
)

var (
	ErrCodeNotFound    = errors.New("confirmation code not found")
	ErrCodeAlreadyUsed = errors.New("confirmation code already used")
	ErrCodeExpired     = errors.New("confirmation code expired")
)

type Service struct {
	repo       repository.Repository
	notifier   notifier.Notifier
	confirmURL string
	nowF       func() time.Time
}

// NewService wires the code store and email delivery. confirmURL is the base
// link embedded in confirmation emails; the code is appended as a query param.
func NewService(repo repository.Repository, n notifier.Notifier, confirmURL string) *Service {
	return &Service{
		repo:       repo,
		notifier:   n,
		confirmURL: confirmURL,
		nowF:       time.Now,
	}
}

// Issue mints a fresh code for the account and purpose, superseding any prior
// code, and emails it to the user. Delivery failure is logged but does not fail
// the call; the user can request a resend.
func (s *Service) Issue(ctx context.Context, accountID, email string, purpose domain.Purpose, ttl time.Duration) (string, error) {
	now := s.nowF().UTC()
	c := &domain.Code{
		Code:      uuid.NewString(),
		AccountID: accountID,
		Purpose:   purpose,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.repo.Upsert(ctx, c); err != nil {
		return "", fmt.Errorf("store confirmation code: %w", err)
	}

	subject, body := s.compose(c.Code, purpose)
	if err := s.notifier.Send(ctx, email, subject, body); err != nil {
		log.Printf("confirmation: send %s email to %s failed: %v", purpose, email, err)
	}
	return c.Code, nil
}

// Validate looks up the code and checks purpose, reuse and expiry. It returns
// the stored record so callers can resolve the owning account.
func (s *Service) Validate(ctx context.Context, code string, purpose domain.Purpose) (*domain.Code, error) {
	c, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if c == nil || c.Purpose != purpose {
		return nil, ErrCodeNotFound
	}
	if c.Confirmed {
		return nil, ErrCodeAlreadyUsed
	}
	if c.Expired(s.nowF().UTC()) {
		return nil, ErrCodeExpired
	}
	return c, nil
}

// Consume marks a validated code as used so it cannot validate again.
func (s *Service) Consume(ctx context.Context, code string) error {
	return s.repo.MarkConfirmed(ctx, code)
}

func (s *Service) compose(code string, purpose domain.Purpose) (subject, body string) {
	switch purpose {
	case domain.PurposePasswordRecovery:
		return "Password recovery",
			fmt.Sprintf(`<h1>Password recovery</h1><p>To finish password recovery please follow the link below: <a href="%s?recoveryCode=%s">recovery password</a></p>`, s.confirmURL, code)
	default:
		return "Confirm your registration",
			fmt.Sprintf(`<h1>Thank you for your registration</h1><p>To finish registration please follow the link below: <a href="%s?code=%s">complete registration</a></p>`, s.confirmURL, code)
	}
}
