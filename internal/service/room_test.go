package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"realtime-chat/internal/domain"
	"realtime-chat/internal/repository"
	"realtime-chat/internal/repository/mocks"
	"realtime-chat/internal/service"
)

func strPtr(s string) *string { return &s }

func TestRoomService_GetOrCreateByName_ExistingRoom(t *testing.T) {
	// Arrange
	mockRoomRepo := new(mocks.RoomRepository)
	roomService := service.NewRoomService(mockRoomRepo)
	ctx := context.Background()

	existing := &domain.Room{ID: 3, Name: strPtr("general")}
	mockRoomRepo.On("FindByName", ctx, "general").
		Return(existing, nil).
		Once()

	// Act
	room, err := roomService.GetOrCreateByName(ctx, "general")

	// Assert
	assert.NoError(t, err)
	assert.Same(t, existing, room)
	mockRoomRepo.AssertNotCalled(t, "Create")
	mockRoomRepo.AssertExpectations(t)
}

func TestRoomService_GetOrCreateByName_CreatesOnFirstReference(t *testing.T) {
	// Arrange
	mockRoomRepo := new(mocks.RoomRepository)
	roomService := service.NewRoomService(mockRoomRepo)
	ctx := context.Background()

	mockRoomRepo.On("FindByName", ctx, "general").
		Return(nil, repository.ErrRoomNotFound).
		Once()
	mockRoomRepo.On("Create", ctx, mock.MatchedBy(func(room *domain.Room) bool {
		require.NotNil(t, room.Name)
		assert.Equal(t, "general", *room.Name)
		assert.False(t, room.LastActive.IsZero())
		return true
	})).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Room).ID = 7
		}).
		Return(nil).
		Once()

	// Act
	room, err := roomService.GetOrCreateByName(ctx, "  general  ")

	// Assert: the name is trimmed before lookup and creation.
	assert.NoError(t, err)
	require.NotNil(t, room)
	assert.Equal(t, uint(7), room.ID)
	mockRoomRepo.AssertExpectations(t)
}

func TestRoomService_GetOrCreateByName_CreationRaceFallsBackToWinner(t *testing.T) {
	// Arrange: the lookup misses, the insert loses to a concurrent
	// creator, and the follow-up lookup finds the winner's row.
	mockRoomRepo := new(mocks.RoomRepository)
	roomService := service.NewRoomService(mockRoomRepo)
	ctx := context.Background()

	winner := &domain.Room{ID: 11, Name: strPtr("general")}
	mockRoomRepo.On("FindByName", ctx, "general").
		Return(nil, repository.ErrRoomNotFound).
		Once()
	mockRoomRepo.On("Create", ctx, mock.AnythingOfType("*domain.Room")).
		Return(repository.ErrDuplicateEntry).
		Once()
	mockRoomRepo.On("FindByName", ctx, "general").
		Return(winner, nil).
		Once()

	// Act
	room, err := roomService.GetOrCreateByName(ctx, "general")

	// Assert: the race never surfaces to the caller.
	assert.NoError(t, err)
	assert.Same(t, winner, room)
	mockRoomRepo.AssertExpectations(t)
}

func TestRoomService_GetOrCreateByName_InvalidName(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	roomService := service.NewRoomService(mockRoomRepo)

	_, err := roomService.GetOrCreateByName(context.Background(), "   ")
	assert.ErrorIs(t, err, service.ErrInvalidRoomName)

	long := make([]byte, 192)
	for i := range long {
		long[i] = 'a'
	}
	_, err = roomService.GetOrCreateByName(context.Background(), string(long))
	assert.ErrorIs(t, err, service.ErrInvalidRoomName)

	mockRoomRepo.AssertNotCalled(t, "FindByName")
	mockRoomRepo.AssertNotCalled(t, "Create")
}

func TestRoomService_CreateRoom_NamelessRoom(t *testing.T) {
	// Arrange: rooms without a name are allowed and reachable by id only.
	mockRoomRepo := new(mocks.RoomRepository)
	roomService := service.NewRoomService(mockRoomRepo)
	ctx := context.Background()

	mockRoomRepo.On("Create", ctx, mock.MatchedBy(func(room *domain.Room) bool {
		assert.Nil(t, room.Name)
		assert.True(t, room.IsPrivate)
		return true
	})).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Room).ID = 20
		}).
		Return(nil).
		Once()

	// Act
	room, err := roomService.CreateRoom(ctx, nil, true)

	// Assert
	assert.NoError(t, err)
	require.NotNil(t, room)
	assert.Equal(t, uint(20), room.ID)
	mockRoomRepo.AssertExpectations(t)
}

func TestRoomService_CreateRoom_DuplicateName(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	roomService := service.NewRoomService(mockRoomRepo)
	ctx := context.Background()

	mockRoomRepo.On("Create", ctx, mock.AnythingOfType("*domain.Room")).
		Return(repository.ErrDuplicateEntry).
		Once()

	room, err := roomService.CreateRoom(ctx, strPtr("general"), false)
	assert.Nil(t, room)
	assert.ErrorIs(t, err, service.ErrInvalidRoomName)
	mockRoomRepo.AssertExpectations(t)
}

func TestRoomService_FindRoomByID_NotFound(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	roomService := service.NewRoomService(mockRoomRepo)
	ctx := context.Background()

	mockRoomRepo.On("FindByID", ctx, uint(404)).
		Return(nil, repository.ErrRoomNotFound).
		Once()

	room, err := roomService.FindRoomByID(ctx, 404)
	assert.Nil(t, room)
	assert.ErrorIs(t, err, service.ErrRoomNotFound)
	mockRoomRepo.AssertExpectations(t)
}
