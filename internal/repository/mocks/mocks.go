// Package mocks provides testify mocks for the repository interfaces,
// used by the service-layer tests.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"realtime-chat/internal/domain"
)

// UserRepository mocks repository.UserRepository.
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	var user *domain.User
	if v := args.Get(0); v != nil {
		user = v.(*domain.User)
	}
	return user, args.Error(1)
}

func (m *UserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	args := m.Called(ctx, id)
	var user *domain.User
	if v := args.Get(0); v != nil {
		user = v.(*domain.User)
	}
	return user, args.Error(1)
}

func (m *UserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// RoomRepository mocks repository.RoomRepository.
type RoomRepository struct {
	mock.Mock
}

func (m *RoomRepository) FindByID(ctx context.Context, id uint) (*domain.Room, error) {
	args := m.Called(ctx, id)
	var room *domain.Room
	if v := args.Get(0); v != nil {
		room = v.(*domain.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepository) FindByName(ctx context.Context, name string) (*domain.Room, error) {
	args := m.Called(ctx, name)
	var room *domain.Room
	if v := args.Get(0); v != nil {
		room = v.(*domain.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *RoomRepository) UpdateLastActive(ctx context.Context, roomID uint, at time.Time) error {
	args := m.Called(ctx, roomID, at)
	return args.Error(0)
}

func (m *RoomRepository) FindInactiveSince(ctx context.Context, cutoff time.Time) ([]domain.Room, error) {
	args := m.Called(ctx, cutoff)
	var rooms []domain.Room
	if v := args.Get(0); v != nil {
		rooms = v.([]domain.Room)
	}
	return rooms, args.Error(1)
}

// MessageRepository mocks repository.MessageRepository.
type MessageRepository struct {
	mock.Mock
}

func (m *MessageRepository) Create(ctx context.Context, message *domain.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MessageRepository) FindRecentByRoom(ctx context.Context, roomID uint, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, roomID, limit)
	var messages []domain.Message
	if v := args.Get(0); v != nil {
		messages = v.([]domain.Message)
	}
	return messages, args.Error(1)
}

// StateRepository mocks repository.StateRepository.
type StateRepository struct {
	mock.Mock
}

func (m *StateRepository) PushMessageToHistory(ctx context.Context, roomID uint, message domain.Message) error {
	args := m.Called(ctx, roomID, message)
	return args.Error(0)
}

func (m *StateRepository) GetRecentMessages(ctx context.Context, roomID uint, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, roomID, limit)
	var messages []domain.Message
	if v := args.Get(0); v != nil {
		messages = v.([]domain.Message)
	}
	return messages, args.Error(1)
}

func (m *StateRepository) CleanupRoomState(ctx context.Context, roomID uint) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}
