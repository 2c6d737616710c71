// Package repository defines the storage interfaces the services depend
// on. Implementations live under internal/infra.
package repository

import (
	"context"

	"realtime-chat/internal/domain"
)

// UserRepository stores and retrieves registered accounts.
type UserRepository interface {
	// FindByUsername returns the user with the given username, or
	// ErrUserNotFound.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	// FindByID returns the user with the given id, or ErrUserNotFound.
	FindByID(ctx context.Context, id uint) (*domain.User, error)

	// Create inserts a new user. A username collision is reported as
	// ErrDuplicateEntry.
	Create(ctx context.Context, user *domain.User) error
}
