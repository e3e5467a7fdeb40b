package repository

import (
	"context"
	"strings"
	"sync"

	"blogger-platform/internal/user/domain"
)

// MemoryRepository is an in-memory user directory for tests and single-process
// development setups.
type MemoryRepository struct {
	mu sync.Mutex
	m  map[string]*domain.User
}

// NewMemoryRepository returns an empty in-memory user repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]*domain.User)}
}

// Get returns the account by id, or nil if not found.
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.m[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// GetByLoginOrEmail matches either field case-insensitively, or returns nil.
func (r *MemoryRepository) GetByLoginOrEmail(ctx context.Context, value string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.m {
		if strings.EqualFold(u.Login, value) || strings.EqualFold(u.Email, value) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// IsLoginOrEmailTaken reports whether either value is already registered.
func (r *MemoryRepository) IsLoginOrEmailTaken(ctx context.Context, login, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.m {
		if strings.EqualFold(u.Login, login) || strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

// Create stores a new account.
func (r *MemoryRepository) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.m[u.ID] = &cp
	return nil
}

// SetConfirmed flags the account's email as confirmed.
func (r *MemoryRepository) SetConfirmed(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.m[id]; ok {
		u.Confirmed = true
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *MemoryRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.m[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

// Delete removes the account. Returns whether one existed.
func (r *MemoryRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[id]; !ok {
		return false, nil
	}
	delete(r.m, id)
	return true, nil
}
