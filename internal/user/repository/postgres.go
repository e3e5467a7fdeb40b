package repository

import (
	"context"
	"database/sql"
	"errors"

	"blogger-platform/internal/user/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = "id, login, email, password_hash, confirmed, created_at"

// GetByID returns the account for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return scanUser(row)
}

// GetByLoginOrEmail returns the account whose login or email matches value
// (case-insensitive), or nil if not found.
func (r *PostgresRepository) GetByLoginOrEmail(ctx context.Context, value string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE LOWER(login) = LOWER($1) OR LOWER(email) = LOWER($1)", value)
	return scanUser(row)
}

// IsLoginOrEmailTaken reports whether an account already uses the given login or email.
func (r *PostgresRepository) IsLoginOrEmailTaken(ctx context.Context, login, email string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM users WHERE LOWER(login) = LOWER($1) OR LOWER(email) = LOWER($2)",
		login, email).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Create persists the account. The account must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users (id, login, email, password_hash, confirmed, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		u.ID, u.Login, u.Email, u.PasswordHash, u.Confirmed, u.CreatedAt)
	return err
}

// SetConfirmed marks the account's email as confirmed.
func (r *PostgresRepository) SetConfirmed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE users SET confirmed = TRUE WHERE id = $1", id)
	return err
}

// UpdatePassword replaces the account's password hash.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE users SET password_hash = $2 WHERE id = $1", id, passwordHash)
	return err
}

// Delete removes the account. Returns whether a row was deleted.
// Sessions and confirmation codes are removed by ON DELETE CASCADE.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Login, &u.Email, &u.PasswordHash, &u.Confirmed, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
