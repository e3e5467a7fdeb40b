package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	auditdomain "blogger-platform/internal/audit/domain"
	confdomain "blogger-platform/internal/confirmation/domain"
	confirmsvc "blogger-platform/internal/confirmation/service"
	userdomain "blogger-platform/internal/user/domain"
)

// Register creates an unconfirmed account and emails a confirmation code. The
// taken-login and taken-email cases share one message so the response does not
// reveal which of the two exists.
func (s *Service) Register(ctx context.Context, login, email, password, ip string) error {
	var ve ValidationError
	if err := userdomain.ValidateLogin(login); err != nil {
		ve.Errors = append(ve.Errors, FieldError{Field: "login", Message: err.Error()})
	}
	if err := userdomain.ValidateEmail(email); err != nil {
		ve.Errors = append(ve.Errors, FieldError{Field: "email", Message: err.Error()})
	}
	if err := userdomain.ValidatePassword(password); err != nil {
		ve.Errors = append(ve.Errors, FieldError{Field: "password", Message: err.Error()})
	}
	if len(ve.Errors) > 0 {
		return &ve
	}

	taken, err := s.users.IsLoginOrEmailTaken(ctx, login, email)
	if err != nil {
		return fmt.Errorf("check login and email: %w", err)
	}
	if taken {
		return newValidationError("loginOrEmail", "login or email is already taken")
	}

	hash, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u := &userdomain.User{
		ID:           uuid.NewString(),
		Login:        login,
		Email:        email,
		PasswordHash: hash,
		Confirmed:    false,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	if _, err := s.confirmations.Issue(ctx, u.ID, u.Email, confdomain.PurposeEmailConfirm, s.cfg.ConfirmationTTL); err != nil {
		return fmt.Errorf("issue confirmation code: %w", err)
	}
	s.auditor.Record(ctx, u.ID, auditdomain.ActionRegister, ip, map[string]string{"login": login})
	return nil
}

// ConfirmRegistration consumes an email-confirmation code and flips the
// account to confirmed. Every code failure maps to the same request field.
func (s *Service) ConfirmRegistration(ctx context.Context, code, ip string) error {
	c, err := s.confirmations.Validate(ctx, code, confdomain.PurposeEmailConfirm)
	if err != nil {
		if msg, ok := codeFailureMessage(err); ok {
			return newValidationError("code", msg)
		}
		return fmt.Errorf("validate confirmation code: %w", err)
	}
	if err := s.users.SetConfirmed(ctx, c.AccountID); err != nil {
		return fmt.Errorf("confirm account: %w", err)
	}
	if err := s.confirmations.Consume(ctx, code); err != nil {
		return fmt.Errorf("consume confirmation code: %w", err)
	}
	s.auditor.Record(ctx, c.AccountID, auditdomain.ActionConfirmEmail, ip, nil)
	return nil
}

// ResendConfirmation issues a fresh confirmation code for an unconfirmed
// account. Unknown and already-confirmed addresses succeed silently so the
// endpoint cannot be used to probe which emails are registered.
func (s *Service) ResendConfirmation(ctx context.Context, email, ip string) error {
	if err := userdomain.ValidateEmail(email); err != nil {
		return newValidationError("email", err.Error())
	}
	u, err := s.users.GetByLoginOrEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find account: %w", err)
	}
	if u == nil || u.Confirmed {
		return nil
	}
	if _, err := s.confirmations.Issue(ctx, u.ID, u.Email, confdomain.PurposeEmailConfirm, s.cfg.ConfirmationTTL); err != nil {
		return fmt.Errorf("issue confirmation code: %w", err)
	}
	return nil
}

// RequestPasswordRecovery emails a recovery code when the address belongs to
// an account. The response is identical either way.
func (s *Service) RequestPasswordRecovery(ctx context.Context, email, ip string) error {
	if err := userdomain.ValidateEmail(email); err != nil {
		return newValidationError("email", err.Error())
	}
	u, err := s.users.GetByLoginOrEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find account: %w", err)
	}
	if u == nil {
		return nil
	}
	if _, err := s.confirmations.Issue(ctx, u.ID, u.Email, confdomain.PurposePasswordRecovery, s.cfg.RecoveryTTL); err != nil {
		return fmt.Errorf("issue recovery code: %w", err)
	}
	s.auditor.Record(ctx, u.ID, auditdomain.ActionPasswordRecovery, ip, nil)
	return nil
}

// SetNewPassword applies a recovery code, replaces the password, and revokes
// every session of the account so stolen refresh tokens die with the old
// password.
func (s *Service) SetNewPassword(ctx context.Context, recoveryCode, newPassword, ip string) error {
	if err := userdomain.ValidatePassword(newPassword); err != nil {
		return newValidationError("newPassword", err.Error())
	}
	c, err := s.confirmations.Validate(ctx, recoveryCode, confdomain.PurposePasswordRecovery)
	if err != nil {
		if msg, ok := codeFailureMessage(err); ok {
			return newValidationError("recoveryCode", msg)
		}
		return fmt.Errorf("validate recovery code: %w", err)
	}

	hash, err := s.hasher.Hash([]byte(newPassword))
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, c.AccountID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.confirmations.Consume(ctx, recoveryCode); err != nil {
		return fmt.Errorf("consume recovery code: %w", err)
	}
	if err := s.sessions.RevokeAll(ctx, c.AccountID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	s.auditor.Record(ctx, c.AccountID, auditdomain.ActionPasswordChanged, ip, nil)
	return nil
}

func codeFailureMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, confirmsvc.ErrCodeNotFound):
		return "code is incorrect", true
	case errors.Is(err, confirmsvc.ErrCodeAlreadyUsed):
		return "code has already been applied", true
	case errors.Is(err, confirmsvc.ErrCodeExpired):
		return "code has expired", true
	}
	return "", false
}
