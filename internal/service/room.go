package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"realtime-chat/internal/domain"
	"realtime-chat/internal/repository"
)

// maxRoomNameLen matches the varchar(191) column behind the unique index.
const maxRoomNameLen = 191

// RoomService handles room lookup and creation.
type RoomService struct {
	roomRepo repository.RoomRepository
}

// NewRoomService creates a RoomService.
func NewRoomService(roomRepo repository.RoomRepository) *RoomService {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for RoomService")
	}
	return &RoomService{roomRepo: roomRepo}
}

// GetOrCreateByName resolves a room name to its single persisted row,
// creating the room on first reference. Concurrent first joiners of the
// same new name are resolved by the unique index on rooms.name: the
// loser's insert comes back as ErrDuplicateEntry and we fall back to the
// row the winner created. The race never surfaces to the caller.
func (s *RoomService) GetOrCreateByName(ctx context.Context, name string) (*domain.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxRoomNameLen {
		return nil, ErrInvalidRoomName
	}
	logCtx := logrus.WithField("room_name", name)

	room, err := s.roomRepo.FindByName(ctx, name)
	if err == nil && room != nil {
		return room, nil
	}
	if err != nil && !errors.Is(err, repository.ErrRoomNotFound) {
		logCtx.WithError(err).Error("GetOrCreateByName: repository error on lookup")
		return nil, ErrInternalServer
	}

	newRoom := &domain.Room{
		Name:       &name,
		LastActive: time.Now(),
	}
	err = s.roomRepo.Create(ctx, newRoom)
	if err == nil {
		logCtx.WithField("room_id", newRoom.ID).Info("Room created on first reference")
		return newRoom, nil
	}
	if !errors.Is(err, repository.ErrDuplicateEntry) {
		logCtx.WithError(err).Error("GetOrCreateByName: failed to create room")
		return nil, ErrInternalServer
	}

	// Lost the creation race; the winner's row must exist now.
	room, err = s.roomRepo.FindByName(ctx, name)
	if err != nil {
		logCtx.WithError(err).Error("GetOrCreateByName: room vanished after duplicate-entry conflict")
		return nil, ErrInternalServer
	}
	logCtx.WithField("room_id", room.ID).Debug("Room creation race resolved to existing row")
	return room, nil
}

// CreateRoom explicitly creates a room from the HTTP surface. A nil name
// (private/direct room) is allowed; a taken name is a business error.
func (s *RoomService) CreateRoom(ctx context.Context, name *string, isPrivate bool) (*domain.Room, error) {
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" || len(trimmed) > maxRoomNameLen {
			return nil, ErrInvalidRoomName
		}
		name = &trimmed
	}

	room := &domain.Room{
		Name:       name,
		IsPrivate:  isPrivate,
		LastActive: time.Now(),
	}
	if err := s.roomRepo.Create(ctx, room); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrInvalidRoomName
		}
		logrus.WithError(err).Error("CreateRoom: failed to save room")
		return nil, ErrInternalServer
	}
	logrus.WithField("room_id", room.ID).Info("Room created")
	return room, nil
}

// FindRoomByID resolves a room id, mapping repository errors to business
// errors.
func (s *RoomService) FindRoomByID(ctx context.Context, roomID uint) (*domain.Room, error) {
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logrus.WithError(err).WithField("room_id", roomID).Error("FindRoomByID: repository error")
		return nil, ErrInternalServer
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return room, nil
}
