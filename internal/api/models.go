package api

import "github.com/phrazzld/hashpool/internal/task"

// HashRequest defines the payload for POST /bcrypt.
type HashRequest struct {
	Password string `json:"password" validate:"required,max=72"`
}

// HashResponse defines the successful response for POST /bcrypt.
type HashResponse struct {
	Hash string `json:"hash"`
}

// VerifyRequest defines the payload for POST /bcrypt/verify.
type VerifyRequest struct {
	Hash     string `json:"hash"     validate:"required"`
	Password string `json:"password" validate:"required,max=72"`
}

// VerifyResponse reports whether the password matched. A mismatch is a
// successful response with Match false, not an error.
type VerifyResponse struct {
	Match bool `json:"match"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string     `json:"status"`
	Pool   task.Stats `json:"pool"`
}
