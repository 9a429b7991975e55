package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/hashpool/internal/api/shared"
	"github.com/phrazzld/hashpool/internal/service"
	"github.com/phrazzld/hashpool/internal/service/auth"
	"github.com/phrazzld/hashpool/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockPasswordService mocks service.PasswordService
type MockPasswordService struct {
	mock.Mock
}

func (m *MockPasswordService) Hash(ctx context.Context, password string) (string, error) {
	args := m.Called(ctx, password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordService) Verify(ctx context.Context, hashedPassword, password string) (bool, error) {
	args := m.Called(ctx, hashedPassword, password)
	return args.Bool(0), args.Error(1)
}

type fixedStats task.Stats

func (s fixedStats) Stats() task.Stats { return task.Stats(s) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(shared.SetTraceID(req.Context()))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHashHandler_Hash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		setup      func(m *MockPasswordService)
		wantStatus int
		wantHash   string
		wantError  string
	}{
		{
			name: "valid password",
			body: `{"password":"hunter2"}`,
			setup: func(m *MockPasswordService) {
				m.On("Hash", mock.Anything, "hunter2").Return("$2a$10$hash", nil)
			},
			wantStatus: http.StatusCreated,
			wantHash:   "$2a$10$hash",
		},
		{
			name:       "missing password",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid Password: required field",
		},
		{
			name:       "password too long",
			body:       fmt.Sprintf(`{"password":%q}`, strings.Repeat("a", 73)),
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid Password: too long",
		},
		{
			name:       "malformed JSON",
			body:       `{"password":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request format",
		},
		{
			name:       "unknown field",
			body:       `{"password":"x","cost":4}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request format",
		},
		{
			name: "multi-byte password over 72 bytes",
			body: fmt.Sprintf(`{"password":%q}`, strings.Repeat("é", 40)),
			setup: func(m *MockPasswordService) {
				m.On("Hash", mock.Anything, mock.Anything).Return("", service.NewPasswordServiceError(
					"hash", "password rejected", auth.ErrPasswordTooLong))
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "Password must not exceed 72 bytes",
		},
		{
			name: "pool closed",
			body: `{"password":"hunter2"}`,
			setup: func(m *MockPasswordService) {
				m.On("Hash", mock.Anything, "hunter2").Return("", service.NewPasswordServiceError(
					"hash", "failed to run hash task", task.ErrPoolClosed))
			},
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "Service is shutting down",
		},
		{
			name: "task timeout",
			body: `{"password":"hunter2"}`,
			setup: func(m *MockPasswordService) {
				m.On("Hash", mock.Anything, "hunter2").Return("", service.NewPasswordServiceError(
					"hash", "hash task failed", &task.ResultError{Kind: task.KindTaskTimeout}))
			},
			wantStatus: http.StatusGatewayTimeout,
			wantError:  "Hashing timed out",
		},
		{
			name: "worker crash",
			body: `{"password":"hunter2"}`,
			setup: func(m *MockPasswordService) {
				m.On("Hash", mock.Anything, "hunter2").Return("", service.NewPasswordServiceError(
					"hash", "hash task failed", &task.ResultError{Kind: task.KindWorkerCrash, Message: "panic at /srv/app"}))
			},
			wantStatus: http.StatusInternalServerError,
			wantError:  "Hashing worker failed",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &MockPasswordService{}
			if tc.setup != nil {
				tc.setup(svc)
			}
			handler := NewHashHandler(svc, fixedStats{}, testLogger())

			rec := doJSON(t, handler.Hash, http.MethodPost, "/bcrypt", tc.body)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			if tc.wantHash != "" {
				var resp HashResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, tc.wantHash, resp.Hash)
			}
			if tc.wantError != "" {
				var resp shared.ErrorResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, tc.wantError, resp.Error)
				assert.NotEmpty(t, resp.TraceID)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestHashHandler_Verify(t *testing.T) {
	t.Parallel()

	hash := "$2a$04$abcdefghijklmnopqrstuuABCDEFGHIJKLMNOPQRSTUVWXYZ01234"

	tests := []struct {
		name       string
		body       string
		setup      func(m *MockPasswordService)
		wantStatus int
		wantMatch  bool
	}{
		{
			name: "match",
			body: fmt.Sprintf(`{"hash":%q,"password":"hunter2"}`, hash),
			setup: func(m *MockPasswordService) {
				m.On("Verify", mock.Anything, hash, "hunter2").Return(true, nil)
			},
			wantStatus: http.StatusOK,
			wantMatch:  true,
		},
		{
			name: "mismatch is not an error",
			body: fmt.Sprintf(`{"hash":%q,"password":"wrong"}`, hash),
			setup: func(m *MockPasswordService) {
				m.On("Verify", mock.Anything, hash, "wrong").Return(false, nil)
			},
			wantStatus: http.StatusOK,
			wantMatch:  false,
		},
		{
			name:       "missing hash",
			body:       `{"password":"hunter2"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "malformed hash",
			body: `{"hash":"nope","password":"hunter2"}`,
			setup: func(m *MockPasswordService) {
				m.On("Verify", mock.Anything, "nope", "hunter2").Return(false, service.NewPasswordServiceError(
					"verify", "hash rejected", auth.ErrInvalidHash))
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &MockPasswordService{}
			if tc.setup != nil {
				tc.setup(svc)
			}
			handler := NewHashHandler(svc, fixedStats{}, testLogger())

			rec := doJSON(t, handler.Verify, http.MethodPost, "/bcrypt/verify", tc.body)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantStatus == http.StatusOK {
				var resp VerifyResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, tc.wantMatch, resp.Match)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestHashHandler_StatsAndHealth(t *testing.T) {
	t.Parallel()

	t.Run("healthy", func(t *testing.T) {
		t.Parallel()
		stats := fixedStats{Capacity: 4, Workers: 4, Idle: 3, Busy: 1, Submitted: 10}
		handler := NewHashHandler(&MockPasswordService{}, stats, testLogger())

		rec := doJSON(t, handler.Stats, http.MethodGet, "/stats", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var got task.Stats
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, task.Stats(stats), got)

		rec = doJSON(t, handler.Health, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var health HealthResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
		assert.Equal(t, "ok", health.Status)
	})

	t.Run("closing", func(t *testing.T) {
		t.Parallel()
		stats := fixedStats{Capacity: 4, Workers: 4, Closing: true}
		handler := NewHashHandler(&MockPasswordService{}, stats, testLogger())

		rec := doJSON(t, handler.Health, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

// TestHashHandler_EndToEnd runs the handlers against a real pool and bcrypt.
func TestHashHandler_EndToEnd(t *testing.T) {
	pool := task.NewWorkerPool(task.WorkerPoolConfig{
		Capacity:   2,
		WorkerInit: task.Handlers(auth.RegisterOperations(bcrypt.MinCost)),
	}, testLogger())
	require.NoError(t, pool.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	})

	svc, err := service.NewPasswordService(pool, testLogger())
	require.NoError(t, err)
	handler := NewHashHandler(svc, pool, testLogger())

	rec := doJSON(t, handler.Hash, http.MethodPost, "/bcrypt", `{"password":"correct horse"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var hashed HashResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&hashed))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hashed.Hash), []byte("correct horse")))

	body, err := json.Marshal(VerifyRequest{Hash: hashed.Hash, Password: "correct horse"})
	require.NoError(t, err)
	rec = doJSON(t, handler.Verify, http.MethodPost, "/bcrypt/verify", string(body))
	require.Equal(t, http.StatusOK, rec.Code)
	var verified VerifyResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&verified))
	assert.True(t, verified.Match)

	stats := pool.Stats()
	assert.Equal(t, uint64(2), stats.Completed)
}
