package state

import "errors"

var (
	// ErrNotFound is returned when no record exists for a key.
	ErrNotFound = errors.New("record not found")

	// ErrDatabaseError is returned when a database operation fails.
	ErrDatabaseError = errors.New("database error")

	// ErrInvalidValue is returned when a value cannot be encoded or decoded.
	ErrInvalidValue = errors.New("invalid value")
)
