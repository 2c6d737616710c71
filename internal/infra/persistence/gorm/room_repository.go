package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"realtime-chat/internal/domain"
	"realtime-chat/internal/repository"
)

// GormRoomRepository is the GORM implementation of repository.RoomRepository.
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates a GormRoomRepository.
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoomRepository")
	}
	return &GormRoomRepository{db: db}
}

func (r *GormRoomRepository) FindByID(ctx context.Context, id uint) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).First(&room, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by id %d: %w", id, err)
	}
	return &room, nil
}

func (r *GormRoomRepository) FindByName(ctx context.Context, name string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by name '%s': %w", name, err)
	}
	return &room, nil
}

// Create inserts a new room. The unique index on rooms.name turns a
// concurrent create of the same name into ErrDuplicateEntry, which the
// service resolves by re-reading the existing row.
func (r *GormRoomRepository) Create(ctx context.Context, room *domain.Room) error {
	err := r.db.WithContext(ctx).Create(room).Error
	if err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: create room (id: %d): %w", room.ID, err)
	}
	return nil
}

func (r *GormRoomRepository) FindInactiveSince(ctx context.Context, cutoff time.Time) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.WithContext(ctx).Where("last_active < ?", cutoff).Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find rooms inactive since %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return rooms, nil
}

func (r *GormRoomRepository) UpdateLastActive(ctx context.Context, roomID uint, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&domain.Room{}).
		Where("id = ?", roomID).
		Update("last_active", at).Error
	if err != nil {
		return fmt.Errorf("gorm: update last_active for room %d: %w", roomID, err)
	}
	return nil
}
