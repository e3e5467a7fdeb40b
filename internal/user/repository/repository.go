package repository

import (
	"context"

	"blogger-platform/internal/user/domain"
)

// Repository defines persistence for accounts (the user directory).
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByLoginOrEmail(ctx context.Context, value string) (*domain.User, error)
	IsLoginOrEmailTaken(ctx context.Context, login, email string) (bool, error)
	Create(ctx context.Context, u *domain.User) error
	SetConfirmed(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) (bool, error)
}
