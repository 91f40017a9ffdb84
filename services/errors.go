package services

import (
	"errors"
	"fmt"
)

// ErrEmptySymbol is returned when a blank ticker reaches the registry
var ErrEmptySymbol = errors.New("symbol is empty")

// StorageError reports that the persistence layer was unavailable or rejected
// a write for a reason other than an expected duplicate.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err is, or wraps, a StorageError
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
