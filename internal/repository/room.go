package repository

import (
	"context"
	"time"

	"realtime-chat/internal/domain"
)

// RoomRepository stores and retrieves chat rooms.
type RoomRepository interface {
	// FindByID returns the room with the given id, or ErrRoomNotFound.
	FindByID(ctx context.Context, id uint) (*domain.Room, error)

	// FindByName returns the room with the given public name, or
	// ErrRoomNotFound.
	FindByName(ctx context.Context, name string) (*domain.Room, error)

	// Create inserts a new room. A name collision with an existing room
	// is reported as ErrDuplicateEntry; the caller decides whether to
	// fall back to the existing row.
	Create(ctx context.Context, room *domain.Room) error

	// UpdateLastActive bumps the room's last-active timestamp. Used by
	// the background activity worker, never on the message hot path.
	UpdateLastActive(ctx context.Context, roomID uint, at time.Time) error

	// FindInactiveSince returns rooms whose last activity predates the
	// given cutoff. Used by the periodic state sweep.
	FindInactiveSince(ctx context.Context, cutoff time.Time) ([]domain.Room, error)
}
