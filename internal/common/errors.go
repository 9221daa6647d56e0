// Package common holds what the storage, service and web layers share: the persistence error
// taxonomy and the shape of incoming API requests.
package common

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateKey is returned when a write violates a uniqueness constraint (e.g. user email).
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrInvalidInput is returned when the caller passes an argument the store refuses to persist.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when no document matches. It is never an operation failure.
	ErrNotFound = errors.New("not found")
	// ErrOperation wraps every other persistence failure (connectivity, timeout, encoding).
	ErrOperation = errors.New("database operation failed")
	// ErrUnacknowledged is returned when the server did not acknowledge a write.
	ErrUnacknowledged = fmt.Errorf("%w: write was not acknowledged", ErrOperation)
)
