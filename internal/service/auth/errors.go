package auth

import "errors"

// Common password hashing errors
var (
	// ErrEmptyPassword indicates the password to hash is empty
	ErrEmptyPassword = errors.New("password is empty")

	// ErrPasswordTooLong indicates the password exceeds bcrypt's 72 byte input limit
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

	// ErrInvalidCost indicates a bcrypt cost outside bcrypt.MinCost..bcrypt.MaxCost
	ErrInvalidCost = errors.New("invalid bcrypt cost")

	// ErrInvalidHash indicates the value is not a well-formed bcrypt hash
	ErrInvalidHash = errors.New("invalid bcrypt hash")
)
