package repository

import (
	"context"

	"blogger-platform/internal/audit/domain"
)

// Repository persists audit entries.
type Repository interface {
	Create(ctx context.Context, e *domain.Entry) error
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*domain.Entry, error)
}
