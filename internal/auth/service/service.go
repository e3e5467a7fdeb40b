// Package service orchestrates login, token rotation, and session revocation.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"blogger-platform/internal/audit"
	auditdomain "blogger-platform/internal/audit/domain"
	confirmsvc "blogger-platform/internal/confirmation/service"
	"blogger-platform/internal/security"
	sessiondomain "blogger-platform/internal/session/domain"
	sessionrepo "blogger-platform/internal/session/repository"
	userdomain "blogger-platform/internal/user/domain"
	userrepo "blogger-platform/internal/user/repository"
)

// ClientMeta is the last-seen client context attached to a session.
type ClientMeta struct {
	IP    string
	Title string
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
	RefreshClaims   *security.RefreshTokenClaims
}

// Config carries the code lifetimes the service hands to the confirmation manager.
type Config struct {
	ConfirmationTTL time.Duration
	RecoveryTTL     time.Duration
}

type Service struct {
	users         userrepo.Repository
	sessions      sessionrepo.Repository
	confirmations *confirmsvc.Service
	tokens        *security.TokenProvider
	hasher        *security.Hasher
	auditor       *audit.Logger
	cfg           Config
}

// NewService wires the auth orchestration over its collaborators. auditor may
// be nil to disable the audit trail.
func NewService(
	users userrepo.Repository,
	sessions sessionrepo.Repository,
	confirmations *confirmsvc.Service,
	tokens *security.TokenProvider,
	hasher *security.Hasher,
	auditor *audit.Logger,
	cfg Config,
) *Service {
	return &Service{
		users:         users,
		sessions:      sessions,
		confirmations: confirmations,
		tokens:        tokens,
		hasher:        hasher,
		auditor:       auditor,
		cfg:           cfg,
	}
}

// Login checks the credentials and opens a session for a freshly minted device
// id. Unknown login and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, loginOrEmail, password string, meta ClientMeta) (*TokenPair, error) {
	u, err := s.users.GetByLoginOrEmail(ctx, loginOrEmail)
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	if u == nil {
		s.auditor.Record(ctx, "", auditdomain.ActionLoginFailed, meta.IP, map[string]string{"login": loginOrEmail})
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(u.PasswordHash, []byte(password)); err != nil {
		s.auditor.Record(ctx, u.ID, auditdomain.ActionLoginFailed, meta.IP, nil)
		return nil, ErrInvalidCredentials
	}

	deviceID := uuid.NewString()
	pair, err := s.openSession(ctx, u.ID, deviceID, meta)
	if err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, u.ID, auditdomain.ActionLogin, meta.IP, map[string]string{"device_id": deviceID})
	return pair, nil
}

// Refresh exchanges a refresh token for a new pair. The rotation is an atomic
// conditional update on the stored issued-at, so a token can be exchanged at
// most once; any later use of it fails.
func (s *Service) Refresh(ctx context.Context, refreshToken string, meta ClientMeta) (*TokenPair, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, ErrUnauthorized
	}

	token, next, err := s.tokens.IssueRefresh(claims.AccountID, claims.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	rotation := sessiondomain.Rotation{
		IssuedAt:  next.IssuedAt,
		ExpiresAt: next.ExpiresAt,
		IP:        meta.IP,
		Title:     meta.Title,
	}
	if err := s.sessions.Rotate(ctx, claims.AccountID, claims.DeviceID, claims.IssuedAt, rotation); err != nil {
		if errors.Is(err, sessionrepo.ErrStaleSession) {
			s.auditor.Record(ctx, claims.AccountID, auditdomain.ActionRefreshRejected, meta.IP,
				map[string]string{"device_id": claims.DeviceID})
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("rotate session: %w", err)
	}

	access, accessExp, err := s.tokens.IssueAccess(claims.AccountID, claims.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	s.auditor.Record(ctx, claims.AccountID, auditdomain.ActionRefresh, meta.IP,
		map[string]string{"device_id": claims.DeviceID})
	return &TokenPair{
		AccessToken:     access,
		RefreshToken:    token,
		AccessExpiresAt: accessExp,
		RefreshClaims:   next,
	}, nil
}

// Logout revokes the session the refresh token points at. An already-revoked
// or rotated-away token is rejected the same way as a malformed one.
func (s *Service) Logout(ctx context.Context, refreshToken string, meta ClientMeta) error {
	claims, err := s.authenticate(ctx, refreshToken)
	if err != nil {
		return err
	}
	revoked, err := s.sessions.Revoke(ctx, claims.AccountID, claims.DeviceID)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if !revoked {
		return ErrUnauthorized
	}
	s.auditor.Record(ctx, claims.AccountID, auditdomain.ActionLogout, meta.IP,
		map[string]string{"device_id": claims.DeviceID})
	return nil
}

// AuthenticateRefresh verifies a refresh token structurally and against the
// live session. Used by the transport layer to authorize device management.
func (s *Service) AuthenticateRefresh(ctx context.Context, refreshToken string) (*security.RefreshTokenClaims, error) {
	return s.authenticate(ctx, refreshToken)
}

// Me returns the account behind an access-token subject.
func (s *Service) Me(ctx context.Context, accountID string) (*userdomain.User, error) {
	u, err := s.users.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	if u == nil {
		return nil, ErrUnauthorized
	}
	return u, nil
}

// ListDevices returns all live sessions of the account.
func (s *Service) ListDevices(ctx context.Context, accountID string) ([]*sessiondomain.Session, error) {
	return s.sessions.ListByAccount(ctx, accountID)
}

// RevokeDevice revokes one of the caller's own sessions. A device id that is
// not among the caller's sessions yields ErrDeviceNotFound; other accounts'
// sessions are out of reach by construction.
func (s *Service) RevokeDevice(ctx context.Context, accountID, targetDeviceID, ip string) error {
	revoked, err := s.sessions.Revoke(ctx, accountID, targetDeviceID)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if !revoked {
		return ErrDeviceNotFound
	}
	s.auditor.Record(ctx, accountID, auditdomain.ActionDeviceRevoked, ip,
		map[string]string{"device_id": targetDeviceID})
	return nil
}

// RevokeOtherDevices revokes every session of the account except the caller's.
func (s *Service) RevokeOtherDevices(ctx context.Context, accountID, currentDeviceID, ip string) error {
	kept, err := s.sessions.RevokeOthers(ctx, accountID, currentDeviceID)
	if err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	if !kept {
		return ErrUnauthorized
	}
	s.auditor.Record(ctx, accountID, auditdomain.ActionDevicesRevoked, ip,
		map[string]string{"kept_device_id": currentDeviceID})
	return nil
}

// authenticate verifies the token signature and expiry, then cross-checks the
// live session: it must exist and its issued-at must equal the claim exactly.
func (s *Service) authenticate(ctx context.Context, refreshToken string) (*security.RefreshTokenClaims, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, ErrUnauthorized
	}
	sess, err := s.sessions.Get(ctx, claims.AccountID, claims.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if sess == nil || !sess.IssuedAt.Equal(claims.IssuedAt) {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// openSession mints a token pair and creates or overwrites the device session.
func (s *Service) openSession(ctx context.Context, accountID, deviceID string, meta ClientMeta) (*TokenPair, error) {
	refresh, claims, err := s.tokens.IssueRefresh(accountID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	sess := &sessiondomain.Session{
		AccountID: accountID,
		DeviceID:  deviceID,
		IssuedAt:  claims.IssuedAt,
		ExpiresAt: claims.ExpiresAt,
		IP:        meta.IP,
		Title:     meta.Title,
		CreatedAt: claims.IssuedAt,
	}
	if err := s.sessions.Upsert(ctx, sess); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	access, accessExp, err := s.tokens.IssueAccess(accountID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	return &TokenPair{
		AccessToken:     access,
		RefreshToken:    refresh,
		AccessExpiresAt: accessExp,
		RefreshClaims:   claims,
	}, nil
}
