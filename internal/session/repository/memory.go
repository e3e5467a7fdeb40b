package repository

import (
	"context"
	"sync"
	"time"

	"blogger-platform/internal/session/domain"
)

// MemoryRepository is an in-memory session store for tests and single-process
// development setups. The mutex makes Rotate's compare-and-swap atomic, matching
// the conditional UPDATE of the Postgres implementation.
type MemoryRepository struct {
	mu sync.Mutex
	m  map[string]*domain.Session // key: accountID + "/" + deviceID
}

// NewMemoryRepository returns an empty in-memory session repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]*domain.Session)}
}

func key(accountID, deviceID string) string {
	return accountID + "/" + deviceID
}

// Get returns the session for the device, or nil if not found.
func (r *MemoryRepository) Get(ctx context.Context, accountID, deviceID string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[key(accountID, deviceID)]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

// Upsert creates or overwrites the session for (s.AccountID, s.DeviceID).
func (r *MemoryRepository) Upsert(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	if prev, ok := r.m[key(s.AccountID, s.DeviceID)]; ok {
		cp.CreatedAt = prev.CreatedAt
	}
	r.m[key(s.AccountID, s.DeviceID)] = &cp
	return nil
}

// Rotate advances the session to next if and only if the stored issued-at still
// equals prevIssuedAt. Check and update happen under one lock.
func (r *MemoryRepository) Rotate(ctx context.Context, accountID, deviceID string, prevIssuedAt time.Time, next domain.Rotation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[key(accountID, deviceID)]
	if !ok || !s.IssuedAt.Equal(prevIssuedAt) {
		return ErrStaleSession
	}
	s.IssuedAt = next.IssuedAt
	s.ExpiresAt = next.ExpiresAt
	s.IP = next.IP
	s.Title = next.Title
	return nil
}

// ListByAccount returns all sessions for the account.
func (r *MemoryRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Session
	for _, s := range r.m {
		if s.AccountID == accountID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Revoke deletes one device session. Returns whether one existed.
func (r *MemoryRepository) Revoke(ctx context.Context, accountID, deviceID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(accountID, deviceID)
	if _, ok := r.m[k]; !ok {
		return false, nil
	}
	delete(r.m, k)
	return true, nil
}

// RevokeOthers deletes every session of the account except keepDeviceID.
func (r *MemoryRepository) RevokeOthers(ctx context.Context, accountID, keepDeviceID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, s := range r.m {
		if s.AccountID == accountID && s.DeviceID != keepDeviceID {
			delete(r.m, k)
		}
	}
	_, kept := r.m[key(accountID, keepDeviceID)]
	return kept, nil
}

// RevokeAll deletes every session of the account.
func (r *MemoryRepository) RevokeAll(ctx context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, s := range r.m {
		if s.AccountID == accountID {
			delete(r.m, k)
		}
	}
	return nil
}

// DeleteExpired removes sessions whose absolute expiry is at or before now.
func (r *MemoryRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, s := range r.m {
		if s.Expired(now) {
			delete(r.m, k)
			n++
		}
	}
	return n, nil
}
