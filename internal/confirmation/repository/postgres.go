package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"blogger-platform/internal/confirmation/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a confirmation code repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert stores the code, replacing any existing code for the same account and
// purpose. The UNIQUE (account_id, purpose) constraint drives the supersede.
func (r *PostgresRepository) Upsert(ctx context.Context, c *domain.Code) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO confirmation_codes (code, account_id, purpose, expires_at, confirmed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id, purpose) DO UPDATE
		SET code = EXCLUDED.code,
		    expires_at = EXCLUDED.expires_at,
		    confirmed = EXCLUDED.confirmed,
		    created_at = EXCLUDED.created_at`,
		c.Code, c.AccountID, c.Purpose, c.ExpiresAt, c.Confirmed, c.CreatedAt)
	return err
}

// GetByCode returns the code record, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (*domain.Code, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT code, account_id, purpose, expires_at, confirmed, created_at FROM confirmation_codes WHERE code = $1",
		code)
	var c domain.Code
	err := row.Scan(&c.Code, &c.AccountID, &c.Purpose, &c.ExpiresAt, &c.Confirmed, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// MarkConfirmed flags the code as used.
func (r *PostgresRepository) MarkConfirmed(ctx context.Context, code string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE confirmation_codes SET confirmed = TRUE WHERE code = $1", code)
	return err
}

// DeleteExpired removes codes past their expiry at now. Used by the sweeper.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM confirmation_codes WHERE expires_at <= $1", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
