package gormpersistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"realtime-chat/internal/domain"
)

// GormMessageRepository is the GORM implementation of
// repository.MessageRepository.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a GormMessageRepository.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	if db == nil {
		panic("database connection cannot be nil for GormMessageRepository")
	}
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Create(ctx context.Context, message *domain.Message) error {
	err := r.db.WithContext(ctx).Create(message).Error
	if err != nil {
		return fmt.Errorf("gorm: create message (room: %d): %w", message.RoomID, err)
	}
	return nil
}

// FindRecentByRoom fetches the newest rows first, then reverses so
// callers always see chronological order.
func (r *GormMessageRepository) FindRecentByRoom(ctx context.Context, roomID uint, limit int) ([]domain.Message, error) {
	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find recent messages for room %d: %w", roomID, err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
