package repository

import (
	"context"

	"realtime-chat/internal/domain"
)

// StateRepository holds hot room state, backed by Redis. Everything here
// is a cache: failures must be tolerable by callers, the database stays
// the source of truth.
type StateRepository interface {
	// PushMessageToHistory appends a message to the room's capped
	// recent-history list.
	PushMessageToHistory(ctx context.Context, roomID uint, message domain.Message) error

	// GetRecentMessages returns up to limit recent messages of a room
	// from the cache, oldest first. A room with no cached history
	// returns an empty slice, not an error.
	GetRecentMessages(ctx context.Context, roomID uint, limit int) ([]domain.Message, error)

	// CleanupRoomState removes all cached keys of a room. Called by the
	// periodic sweep for rooms gone inactive.
	CleanupRoomState(ctx context.Context, roomID uint) error
}
