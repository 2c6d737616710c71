package repository

import "errors"

// Errors shared by all repository implementations.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry indicates an insert or update violated a unique constraint.
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
)

// Per-entity aliases so callers can match the resource they asked for.
var (
	ErrUserNotFound = ErrNotFound
	ErrRoomNotFound = ErrNotFound
)
