package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"blogger-platform/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = "account_id, device_id, issued_at, expires_at, ip, title, created_at"

// Get returns the session for the device, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) Get(ctx context.Context, accountID, deviceID string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE account_id = $1 AND device_id = $2",
		accountID, deviceID)
	var s domain.Session
	err := row.Scan(&s.AccountID, &s.DeviceID, &s.IssuedAt, &s.ExpiresAt, &s.IP, &s.Title, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// Upsert creates or overwrites the session for (s.AccountID, s.DeviceID).
func (r *PostgresRepository) Upsert(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (account_id, device_id, issued_at, expires_at, ip, title, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (account_id, device_id) DO UPDATE
		SET issued_at = EXCLUDED.issued_at,
		    expires_at = EXCLUDED.expires_at,
		    ip = EXCLUDED.ip,
		    title = EXCLUDED.title`,
		s.AccountID, s.DeviceID, s.IssuedAt, s.ExpiresAt, s.IP, s.Title, s.CreatedAt)
	return err
}

// Rotate advances the session to next if and only if the stored issued_at still
// equals prevIssuedAt. The conditional UPDATE is a single atomic statement, so of
// two concurrent rotations with the same prevIssuedAt exactly one affects a row;
// the other gets ErrStaleSession.
func (r *PostgresRepository) Rotate(ctx context.Context, accountID, deviceID string, prevIssuedAt time.Time, next domain.Rotation) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET issued_at = $1, expires_at = $2, ip = $3, title = $4
		WHERE account_id = $5 AND device_id = $6 AND issued_at = $7`,
		next.IssuedAt, next.ExpiresAt, next.IP, next.Title, accountID, deviceID, prevIssuedAt)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleSession
	}
	return nil
}

// ListByAccount returns all sessions for the account, newest issuance first.
func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE account_id = $1 ORDER BY issued_at DESC",
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.AccountID, &s.DeviceID, &s.IssuedAt, &s.ExpiresAt, &s.IP, &s.Title, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// Revoke deletes one device session. Returns whether one existed.
func (r *PostgresRepository) Revoke(ctx context.Context, accountID, deviceID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE account_id = $1 AND device_id = $2", accountID, deviceID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RevokeOthers deletes every session of the account except keepDeviceID.
// Returns true when the kept session still exists afterwards.
func (r *PostgresRepository) RevokeOthers(ctx context.Context, accountID, keepDeviceID string) (bool, error) {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE account_id = $1 AND device_id <> $2", accountID, keepDeviceID)
	if err != nil {
		return false, err
	}
	kept, err := r.Get(ctx, accountID, keepDeviceID)
	if err != nil {
		return false, err
	}
	return kept != nil, nil
}

// RevokeAll deletes every session of the account.
func (r *PostgresRepository) RevokeAll(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE account_id = $1", accountID)
	return err
}

// DeleteExpired removes sessions whose absolute expiry is at or before now.
// Returns the number of rows removed. Used by the sweeper.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= $1", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
