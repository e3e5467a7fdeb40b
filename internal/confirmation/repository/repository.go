package repository

import (
	"context"
	"time"

	"blogger-platform/internal/confirmation/domain"
)

// Repository defines persistence for confirmation codes. Upsert replaces any
// prior code for the same (AccountID, Purpose) so stale codes stop validating
// the moment a new one is issued.
type Repository interface {
	Upsert(ctx context.Context, c *domain.Code) error
	GetByCode(ctx context.Context, code string) (*domain.Code, error)
	MarkConfirmed(ctx context.Context, code string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
