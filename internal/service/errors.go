package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("file not found")
	ErrReaderNil          = errors.New("reader is nil")
	ErrFileTooLarge       = errors.New("file exceeds the maximum allowed size")
	ErrUnsupportedType    = errors.New("file type is not allowed")
	ErrStorageUnavailable = errors.New("storage unavailable")

	ErrInvalidInput       = errors.New("invalid input")
	ErrUserExists         = errors.New("username or email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// unavailable marks a collaborator failure as retryable by the caller.
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}
