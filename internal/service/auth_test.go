package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"realtime-chat/internal/domain"
	"realtime-chat/internal/repository"
	"realtime-chat/internal/repository/mocks"
	"realtime-chat/internal/service"
)

func newAuthService(t *testing.T, userRepo repository.UserRepository) *service.AuthService {
	t.Helper()
	authService, err := service.NewAuthService(userRepo, "very-secret-key", 1)
	require.NoError(t, err, "creating AuthService should not fail")
	return authService
}

func TestAuthService_Register_Success(t *testing.T) {
	// Arrange
	mockUserRepo := new(mocks.UserRepository)
	authService := newAuthService(t, mockUserRepo)
	ctx := context.Background()
	username := "newbie"
	password := "StrongPass123"

	mockUserRepo.On("Create", ctx, mock.MatchedBy(func(user *domain.User) bool {
		assert.Equal(t, username, user.Username)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)), "password should be hashed")
		return true
	})).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.User).ID = 5
		}).
		Return(nil).
		Once()

	// Act
	registeredUser, err := authService.Register(ctx, username, password)

	// Assert
	assert.NoError(t, err)
	require.NotNil(t, registeredUser)
	assert.Equal(t, uint(5), registeredUser.ID)
	assert.Equal(t, username, registeredUser.Username)
	assert.Empty(t, registeredUser.Password, "the hash must not be handed back")

	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Register_UsernameTaken(t *testing.T) {
	// Arrange
	mockUserRepo := new(mocks.UserRepository)
	authService := newAuthService(t, mockUserRepo)
	ctx := context.Background()

	mockUserRepo.On("Create", ctx, mock.AnythingOfType("*domain.User")).
		Return(repository.ErrDuplicateEntry).
		Once()

	// Act
	registeredUser, err := authService.Register(ctx, "taken", "SomePass123")

	// Assert
	assert.Nil(t, registeredUser)
	assert.ErrorIs(t, err, service.ErrRegistrationFailed)

	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Register_EmptyInput(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService := newAuthService(t, mockUserRepo)

	_, err := authService.Register(context.Background(), "", "password")
	assert.Error(t, err)

	_, err = authService.Register(context.Background(), "someone", "")
	assert.Error(t, err)

	mockUserRepo.AssertNotCalled(t, "Create")
}

func TestAuthService_Login_SuccessAndTokenRoundTrip(t *testing.T) {
	// Arrange
	mockUserRepo := new(mocks.UserRepository)
	authService := newAuthService(t, mockUserRepo)
	ctx := context.Background()
	password := "CorrectHorse9"

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)

	mockUserRepo.On("FindByUsername", ctx, "alice").
		Return(&domain.User{ID: 42, Username: "alice", Password: string(hash)}, nil).
		Once()

	// Act
	token, err := authService.Login(ctx, "alice", password)

	// Assert
	assert.NoError(t, err)
	require.NotEmpty(t, token)

	// The token issued by Login must validate back to the same user id.
	userID, err := authService.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, uint(42), userID)

	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	// Arrange
	mockUserRepo := new(mocks.UserRepository)
	authService := newAuthService(t, mockUserRepo)
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("RightPassword1"), bcrypt.DefaultCost)
	require.NoError(t, err)

	mockUserRepo.On("FindByUsername", ctx, "alice").
		Return(&domain.User{ID: 42, Username: "alice", Password: string(hash)}, nil).
		Once()

	// Act
	token, err := authService.Login(ctx, "alice", "WrongPassword1")

	// Assert
	assert.Empty(t, token)
	assert.ErrorIs(t, err, service.ErrAuthenticationFailed)

	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_Login_UnknownUser(t *testing.T) {
	// Arrange
	mockUserRepo := new(mocks.UserRepository)
	authService := newAuthService(t, mockUserRepo)
	ctx := context.Background()

	mockUserRepo.On("FindByUsername", ctx, "ghost").
		Return(nil, repository.ErrUserNotFound).
		Once()

	// Act
	token, err := authService.Login(ctx, "ghost", "whatever123")

	// Assert: the same error as a wrong password, so usernames cannot be
	// probed through the login endpoint.
	assert.Empty(t, token)
	assert.ErrorIs(t, err, service.ErrAuthenticationFailed)

	mockUserRepo.AssertExpectations(t)
}

func TestAuthService_ValidateToken_Garbage(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService := newAuthService(t, mockUserRepo)

	userID, err := authService.ValidateToken("not-a-token")
	assert.Zero(t, userID)
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestAuthService_ValidateToken_WrongSecret(t *testing.T) {
	// Arrange: a token signed by a service with a different secret.
	mockUserRepo := new(mocks.UserRepository)
	otherService, err := service.NewAuthService(mockUserRepo, "different-secret", 1)
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte("SomePass123"), bcrypt.DefaultCost)
	require.NoError(t, err)
	mockUserRepo.On("FindByUsername", mock.Anything, "bob").
		Return(&domain.User{ID: 7, Username: "bob", Password: string(hash)}, nil).
		Once()
	foreignToken, err := otherService.Login(context.Background(), "bob", "SomePass123")
	require.NoError(t, err)

	authService := newAuthService(t, new(mocks.UserRepository))

	// Act
	userID, err := authService.ValidateToken(foreignToken)

	// Assert
	assert.Zero(t, userID)
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestAuthService_FindUserByID_NotFound(t *testing.T) {
	mockUserRepo := new(mocks.UserRepository)
	authService := newAuthService(t, mockUserRepo)
	ctx := context.Background()

	mockUserRepo.On("FindByID", ctx, uint(99)).
		Return(nil, repository.ErrUserNotFound).
		Once()

	user, err := authService.FindUserByID(ctx, 99)
	assert.Nil(t, user)
	assert.True(t, errors.Is(err, service.ErrUserNotFound))

	mockUserRepo.AssertExpectations(t)
}
