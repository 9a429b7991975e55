package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/hashpool/internal/service/auth"
	"github.com/phrazzld/hashpool/internal/task"
)

// Common service errors - sentinel errors used across service implementations.
// Callers check for them with errors.Is(); the API layer maps them to HTTP
// status codes.
var (
	// ErrInvalidInput indicates the request cannot be hashed or verified as given.
	// API layer should map this to HTTP 400 Bad Request.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable indicates the pool is not accepting work.
	// API layer should map this to HTTP 503 Service Unavailable.
	ErrUnavailable = errors.New("hashing service unavailable")
)

// PasswordServiceError wraps errors from the password service with context.
type PasswordServiceError struct {
	// Operation is the operation that failed (e.g., "hash", "verify")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for PasswordServiceError.
func (e *PasswordServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("password service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("password service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *PasswordServiceError) Unwrap() error {
	return e.Err
}

// NewPasswordServiceError creates a new PasswordServiceError. Validation
// failures and a closed pool are reported through the service sentinels
// while keeping the original error in the chain.
func NewPasswordServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, auth.ErrEmptyPassword),
		errors.Is(err, auth.ErrPasswordTooLong),
		errors.Is(err, auth.ErrInvalidHash),
		errors.Is(err, auth.ErrInvalidCost):
		err = fmt.Errorf("%w: %w", ErrInvalidInput, err)
	case errors.Is(err, task.ErrPoolClosed),
		errors.Is(err, task.ErrPoolNotStarted):
		err = fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return &PasswordServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
