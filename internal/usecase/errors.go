package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrNotAvailable          = errors.New("resource not available")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrExternalService       = errors.New("external service error")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrDatabase              = errors.New("database error")

	// ErrInsufficientBalance also matches ErrInvalidInput.
	ErrInsufficientBalance = fmt.Errorf("%w: insufficient balance", ErrInvalidInput)
)

// storeError tags a repository failure as ErrDatabase while keeping the cause.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrDatabase) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrDatabase, err)
}
