package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"blogger-platform/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create stores one entry. Metadata is serialized to JSON; nil becomes NULL.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.Entry) error {
	var meta any
	if e.Metadata != nil {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
		meta = b
	}
	var accountID any
	if e.AccountID != "" {
		accountID = e.AccountID
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, account_id, action, ip, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, accountID, e.Action, e.IP, meta, e.CreatedAt)
	return err
}

// ListByAccount returns the newest entries for the account, most recent first.
func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]*domain.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, COALESCE(account_id, ''), action, ip, metadata, created_at
		FROM audit_logs WHERE account_id = $1
		ORDER BY created_at DESC LIMIT $2`,
		accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Entry
	for rows.Next() {
		var e domain.Entry
		var meta []byte
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Action, &e.IP, &meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
