package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a catalog lookup misses.
	ErrNotFound = errors.New("not found")
	// ErrMalformedRecord marks persisted progress that cannot be decoded.
	ErrMalformedRecord = errors.New("malformed progress record")
)

// StorageError wraps a persistence failure for a user.
type StorageError struct {
	Op   string
	User UserID
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s for user %d: %v", e.Op, e.User, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError reports whether err carries a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
