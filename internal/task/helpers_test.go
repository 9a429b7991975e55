package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/hashpool/internal/events"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// eventRecorder collects pool events. Handlers run on the supervisor
// goroutine, so reads from the test goroutine go through the mutex.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.PoolEvent
}

func (r *eventRecorder) HandleEvent(_ context.Context, event *events.PoolEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

func (r *eventRecorder) ofType(eventType events.EventType) []events.PoolEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.PoolEvent
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (r *eventRecorder) dispatchedIDs() []uint64 {
	var ids []uint64
	for _, e := range r.ofType(events.TaskDispatched) {
		ids = append(ids, e.TaskID)
	}
	return ids
}

func (r *eventRecorder) workerFor(taskID uint64) uint64 {
	for _, e := range r.ofType(events.TaskDispatched) {
		if e.TaskID == taskID {
			return e.WorkerID
		}
	}
	return 0
}

// gates lets a test decide when "block" tasks finish. Each gate is released
// by closing its channel.
type gates map[string]chan struct{}

func newGates(names ...string) gates {
	g := make(gates, len(names))
	for _, name := range names {
		g[name] = make(chan struct{})
	}
	return g
}

func (g gates) release(name string) {
	close(g[name])
}

// register installs the test operations: block, sleep, fail and crash.
func (g gates) register(r Registry) {
	r.Register("block", func(ctx context.Context, args Args) (any, error) {
		name, err := args.String(0)
		if err != nil {
			return nil, err
		}
		select {
		case <-g[name]:
			return name, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	r.Register("sleep", func(ctx context.Context, args Args) (any, error) {
		ms, err := args.Int(0)
		if err != nil {
			return nil, err
		}
		select {
		case <-time.After(time.Duration(ms) * time.Millisecond):
			return ms, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	r.Register("fail", func(ctx context.Context, args Args) (any, error) {
		return nil, errors.New("handler refused")
	})
	r.Register("crash", func(ctx context.Context, args Args) (any, error) {
		panic("boom")
	})
}

type testPool struct {
	*Pool
	recorder *eventRecorder
}

func newTestPool(t *testing.T, config WorkerPoolConfig) *testPool {
	t.Helper()

	logger := setupTestLogger()
	pool := NewWorkerPool(config, logger)

	recorder := &eventRecorder{}
	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(recorder)
	pool.SetEventEmitter(emitter)

	require.NoError(t, pool.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	})

	return &testPool{Pool: pool, recorder: recorder}
}

func submit(t *testing.T, p *testPool, operation string, args ...any) *Handle {
	t.Helper()
	h, err := p.Submit(context.Background(), NewPayload(operation, args...))
	require.NoError(t, err)
	return h
}

func wait(t *testing.T, h *Handle) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := h.Wait(ctx)
	require.NoError(t, err, "task %d did not settle", h.ID())
	return result
}
