package service

import "errors"

// Business errors returned to the handler layer. Handlers map these to
// HTTP status codes; anything else is treated as an internal error.
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrRoomNotFound         = errors.New("room not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: username already exists")
	ErrInvalidToken         = errors.New("invalid or expired token")
	ErrInvalidRoomName      = errors.New("invalid room name")
	ErrInternalServer       = errors.New("internal server error")
)
