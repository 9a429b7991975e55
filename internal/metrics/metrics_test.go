package metrics

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phrazzld/hashpool/internal/events"
	"github.com/phrazzld/hashpool/internal/task"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) (*PoolMetrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := NewPoolMetrics(reg, "hashpool")
	require.NoError(t, err)
	return m, reg
}

func event(eventType events.EventType, fill func(e *events.PoolEvent)) *events.PoolEvent {
	e := events.NewPoolEvent(eventType)
	if fill != nil {
		fill(e)
	}
	return e
}

func TestNewPoolMetrics_DuplicateRegistration(t *testing.T) {
	_, reg := newTestMetrics(t)

	_, err := NewPoolMetrics(reg, "hashpool")
	assert.Error(t, err)
}

func TestPoolMetrics_HandleEvent(t *testing.T) {
	m, _ := newTestMetrics(t)
	ctx := context.Background()

	steps := []*events.PoolEvent{
		event(events.WorkerSpawned, func(e *events.PoolEvent) { e.WorkerID = 1 }),
		event(events.TaskSubmitted, func(e *events.PoolEvent) {
			e.Operation = "bcryptHash"
			e.QueueDepth = 1
		}),
		event(events.TaskDispatched, func(e *events.PoolEvent) {
			e.Operation = "bcryptHash"
			e.Elapsed = 2 * time.Millisecond
			e.Busy = 1
		}),
		event(events.TaskSettled, func(e *events.PoolEvent) {
			e.Operation = "bcryptHash"
			e.Elapsed = 50 * time.Millisecond
		}),
		event(events.TaskSubmitted, func(e *events.PoolEvent) { e.Operation = "bcryptHash" }),
		event(events.WorkerCrashed, func(e *events.PoolEvent) {
			e.ErrorKind = string(task.KindTaskTimeout)
			e.Busy = 1
		}),
		event(events.TaskSettled, func(e *events.PoolEvent) {
			e.Operation = "bcryptHash"
			e.ErrorKind = string(task.KindTaskTimeout)
			e.QueueDepth = 3
		}),
	}
	for _, e := range steps {
		require.NoError(t, m.HandleEvent(ctx, e))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TasksSubmitted.WithLabelValues("bcryptHash")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksSettled.WithLabelValues("bcryptHash", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksSettled.WithLabelValues("bcryptHash", "TaskTimeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WorkerCrashes.WithLabelValues("TaskTimeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WorkersSpawned))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.QueueDepth), "gauges follow the latest event")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.BusyWorkers))
	assert.Equal(t, 1, testutil.CollectAndCount(m.QueueWait))
	assert.Equal(t, 1, testutil.CollectAndCount(m.TaskLatency))
}

func TestPoolMetrics_UnknownEvent(t *testing.T) {
	m, _ := newTestMetrics(t)

	err := m.HandleEvent(context.Background(), event("something_else", nil))
	assert.Error(t, err)
}

// TestPoolMetrics_WithPool wires the collector to a running pool through the
// in-memory emitter.
func TestPoolMetrics_WithPool(t *testing.T) {
	m, reg := newTestMetrics(t)

	emitter := events.NewInMemoryEventEmitter(slog.New(slog.NewTextHandler(io.Discard, nil)))
	emitter.RegisterHandler(m)

	pool := task.NewWorkerPool(task.WorkerPoolConfig{Capacity: 2}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	pool.SetEventEmitter(emitter)
	require.NoError(t, pool.Start())

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		result, err := pool.Do(ctx, task.NewPayload(task.OperationEcho, i))
		require.NoError(t, err)
		require.True(t, result.OK)
	}
	_, err := pool.Do(ctx, task.NewPayload("missing"))
	require.NoError(t, err)

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(shutdownCtx))

	assert.Equal(t, 5.0, testutil.ToFloat64(m.TasksSettled.WithLabelValues(task.OperationEcho, OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksSettled.WithLabelValues("missing", string(task.KindUnknownOperation))))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.WorkersSpawned))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hashpool_pool_tasks_submitted_total")
}
