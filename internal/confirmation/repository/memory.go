package repository

import (
	"context"
	"sync"
	"time"

	"blogger-platform/internal/confirmation/domain"
)

// MemoryRepository is an in-memory code store for tests and single-process
// development setups.
type MemoryRepository struct {
	mu sync.Mutex
	m  map[string]*domain.Code
}

// NewMemoryRepository returns an empty in-memory code repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]*domain.Code)}
}

// Upsert stores the code, dropping any prior code for the same account and purpose.
func (r *MemoryRepository) Upsert(ctx context.Context, c *domain.Code) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, prev := range r.m {
		if prev.AccountID == c.AccountID && prev.Purpose == c.Purpose {
			delete(r.m, k)
		}
	}
	cp := *c
	r.m[c.Code] = &cp
	return nil
}

// GetByCode returns the code record, or nil if not found.
func (r *MemoryRepository) GetByCode(ctx context.Context, code string) (*domain.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.m[code]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

// MarkConfirmed flags the code as used.
func (r *MemoryRepository) MarkConfirmed(ctx context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.m[code]; ok {
		c.Confirmed = true
	}
	return nil
}

// DeleteExpired removes codes past their expiry at now.
func (r *MemoryRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, c := range r.m {
		if c.Expired(now) {
			delete(r.m, k)
			n++
		}
	}
	return n, nil
}
