package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/hashpool/internal/api/shared"
	"github.com/phrazzld/hashpool/internal/service"
	"github.com/phrazzld/hashpool/internal/service/auth"
	"github.com/phrazzld/hashpool/internal/task"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Bad request errors
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, task.ErrInvalidPayload):
		return http.StatusBadRequest

	// The pool is not taking work
	case errors.Is(err, service.ErrUnavailable),
		errors.Is(err, task.ErrPoolClosed),
		errors.Is(err, task.ErrPoolNotStarted),
		errors.Is(err, task.ErrWorkerSpawnFailure):
		return http.StatusServiceUnavailable

	// The work did not finish in time
	case errors.Is(err, task.ErrTaskTimeout),
		errors.Is(err, task.ErrShutdownTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	// The caller gave up before the task was assigned
	case errors.Is(err, task.ErrCancelled),
		errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout

	// Default: internal server error (worker crashes, failed handlers)
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrEmptyPassword):
		return "Password is required"
	case errors.Is(err, auth.ErrPasswordTooLong):
		return "Password must not exceed 72 bytes"
	case errors.Is(err, auth.ErrInvalidHash):
		return "Invalid bcrypt hash"
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, task.ErrInvalidPayload):
		return "Invalid request"

	case errors.Is(err, service.ErrUnavailable),
		errors.Is(err, task.ErrPoolClosed),
		errors.Is(err, task.ErrPoolNotStarted):
		return "Service is shutting down"
	case errors.Is(err, task.ErrWorkerSpawnFailure):
		return "No workers available"

	case errors.Is(err, task.ErrTaskTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return "Hashing timed out"
	case errors.Is(err, task.ErrShutdownTimeout):
		return "Service shut down before the request completed"

	case errors.Is(err, task.ErrCancelled),
		errors.Is(err, context.Canceled):
		return "Request was cancelled"

	case errors.Is(err, task.ErrWorkerCrash):
		return "Hashing worker failed"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the mapped status and safe message for err and logs
// the redacted details.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
	}

	// Fall back to a generic validation error message
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
