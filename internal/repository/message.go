package repository

import (
	"context"

	"realtime-chat/internal/domain"
)

// MessageRepository stores and retrieves persisted chat messages.
type MessageRepository interface {
	// Create appends one message. The repository fills ID; Timestamp is
	// assigned by the caller at receipt time so persistence latency
	// cannot reorder a sender's messages.
	Create(ctx context.Context, message *domain.Message) error

	// FindRecentByRoom returns up to limit most recent messages of a
	// room, oldest first.
	FindRecentByRoom(ctx context.Context, roomID uint, limit int) ([]domain.Message, error)
}
