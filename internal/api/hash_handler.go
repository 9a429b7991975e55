package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/hashpool/internal/api/shared"
	"github.com/phrazzld/hashpool/internal/service"
	"github.com/phrazzld/hashpool/internal/task"
)

// StatsProvider reports the current state of the worker pool.
// *task.Pool satisfies it.
type StatsProvider interface {
	Stats() task.Stats
}

// HashHandler handles the password hashing endpoints.
type HashHandler struct {
	passwordService service.PasswordService
	pool            StatsProvider
	logger          *slog.Logger
}

// NewHashHandler creates a new HashHandler with the given dependencies.
func NewHashHandler(
	passwordService service.PasswordService,
	pool StatsProvider,
	logger *slog.Logger,
) *HashHandler {
	return &HashHandler{
		passwordService: passwordService,
		pool:            pool,
		logger:          logger.With("component", "hash_handler"),
	}
}

// Hash handles POST /bcrypt.
func (h *HashHandler) Hash(w http.ResponseWriter, r *http.Request) {
	var req HashRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	hash, err := h.passwordService.Hash(r.Context(), req.Password)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, HashResponse{Hash: hash})
}

// Verify handles POST /bcrypt/verify.
func (h *HashHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	match, err := h.passwordService.Verify(r.Context(), req.Hash, req.Password)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, VerifyResponse{Match: match})
}

// Stats handles GET /stats.
func (h *HashHandler) Stats(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.pool.Stats())
}

// Health handles GET /health. It reports 503 once the pool has begun
// shutting down so load balancers stop routing to this instance.
func (h *HashHandler) Health(w http.ResponseWriter, r *http.Request) {
	stats := h.pool.Stats()
	if stats.Closing || stats.Workers == 0 {
		shared.RespondWithJSON(w, r, http.StatusServiceUnavailable, HealthResponse{
			Status: "unavailable",
			Pool:   stats,
		})
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "ok", Pool: stats})
}
