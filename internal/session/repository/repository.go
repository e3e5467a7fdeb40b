package repository

import (
	"context"
	"errors"
	"time"

	"blogger-platform/internal/session/domain"
)

// ErrStaleSession is returned by Rotate when the stored session's issued-at does
// not equal the presented token's issued-at: the token was already rotated away
// (replay) or the session no longer exists.
var ErrStaleSession = errors.New("stale or superseded refresh token")

// Repository defines persistence for device sessions. Rotate must be atomic with
// respect to concurrent Rotate/Revoke calls for the same (accountID, deviceID):
// of two racers presenting the same prevIssuedAt, exactly one wins.
type Repository interface {
	Get(ctx context.Context, accountID, deviceID string) (*domain.Session, error)
	Upsert(ctx context.Context, s *domain.Session) error
	Rotate(ctx context.Context, accountID, deviceID string, prevIssuedAt time.Time, next domain.Rotation) error
	ListByAccount(ctx context.Context, accountID string) ([]*domain.Session, error)
	Revoke(ctx context.Context, accountID, deviceID string) (bool, error)
	RevokeOthers(ctx context.Context, accountID, keepDeviceID string) (bool, error)
	RevokeAll(ctx context.Context, accountID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
