package service

import (
	"context"
	"log/slog"

	"github.com/phrazzld/hashpool/internal/service/auth"
	"github.com/phrazzld/hashpool/internal/task"
)

// TaskSubmitter runs a payload on the worker pool and waits for its result.
// *task.Pool satisfies it.
type TaskSubmitter interface {
	Do(ctx context.Context, payload task.Payload) (task.Result, error)
}

// PasswordService hashes and verifies passwords off the request goroutine.
type PasswordService interface {
	// Hash returns a salted bcrypt hash of the password.
	Hash(ctx context.Context, password string) (string, error)

	// Verify reports whether the password matches the bcrypt hash.
	Verify(ctx context.Context, hashedPassword, password string) (bool, error)
}

// passwordServiceImpl implements the PasswordService interface
type passwordServiceImpl struct {
	pool   TaskSubmitter
	logger *slog.Logger
}

// NewPasswordService creates a new PasswordService backed by the given pool.
func NewPasswordService(pool TaskSubmitter, logger *slog.Logger) (PasswordService, error) {
	if pool == nil {
		return nil, &PasswordServiceError{
			Operation: "create_service",
			Message:   "pool cannot be nil",
		}
	}
	if logger == nil {
		return nil, &PasswordServiceError{
			Operation: "create_service",
			Message:   "logger cannot be nil",
		}
	}

	return &passwordServiceImpl{
		pool:   pool,
		logger: logger.With("component", "password_service"),
	}, nil
}

// Hash implements PasswordService.
func (s *passwordServiceImpl) Hash(ctx context.Context, password string) (string, error) {
	if err := auth.ValidatePassword(password); err != nil {
		return "", NewPasswordServiceError("hash", "password rejected", err)
	}

	result, err := s.pool.Do(ctx, task.NewPayload(auth.OperationBcryptHash, password))
	if err != nil {
		return "", NewPasswordServiceError("hash", "failed to run hash task", err)
	}

	var hash string
	if err := result.Decode(&hash); err != nil {
		s.logger.Error("hash task failed",
			"error_kind", result.ErrorKind,
			"error", err)
		return "", NewPasswordServiceError("hash", "hash task failed", err)
	}
	return hash, nil
}

// Verify implements PasswordService.
func (s *passwordServiceImpl) Verify(ctx context.Context, hashedPassword, password string) (bool, error) {
	if err := auth.ValidateHash(hashedPassword); err != nil {
		return false, NewPasswordServiceError("verify", "hash rejected", err)
	}
	if err := auth.ValidatePassword(password); err != nil {
		return false, NewPasswordServiceError("verify", "password rejected", err)
	}

	result, err := s.pool.Do(ctx, task.NewPayload(auth.OperationBcryptCompare, hashedPassword, password))
	if err != nil {
		return false, NewPasswordServiceError("verify", "failed to run compare task", err)
	}

	var match bool
	if err := result.Decode(&match); err != nil {
		s.logger.Error("compare task failed",
			"error_kind", result.ErrorKind,
			"error", err)
		return false, NewPasswordServiceError("verify", "compare task failed", err)
	}
	return match, nil
}
