package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/phrazzld/hashpool/internal/events"
)

// Pool runs submitted payloads on a fixed set of isolated workers. A single
// supervisor goroutine owns all scheduling state; callers and workers talk to
// it only through channels.
type Pool struct {
	config  WorkerPoolConfig
	logger  *slog.Logger
	emitter events.EventEmitter

	started      atomic.Bool
	shutdownOnce sync.Once
	forceOnce    sync.Once

	submitCh   chan submitRequest
	cancelCh   chan cancelRequest
	statsCh    chan chan Stats
	shutdownCh chan struct{}
	forceCh    chan struct{}
	results    chan workerResult
	crashes    chan workerCrash
	timeouts   chan timeoutNotice

	// stopped is closed by the supervisor when it exits. final and
	// shutdownErr are written before the close.
	stopped     chan struct{}
	final       Stats
	shutdownErr error

	// Owned by the supervisor goroutine
	queue        *taskQueue
	workers      map[uint64]*worker
	idle         []uint64
	tasks        map[uint64]*task
	nextTaskID   uint64
	nextWorkerID uint64
	closing      bool
	stats        Stats
}

// NewWorkerPool creates a new pool with the specified configuration. The pool
// does not run anything until Start is called.
func NewWorkerPool(config WorkerPoolConfig, logger *slog.Logger) *Pool {
	// Apply defaults for invalid config values
	if config.Capacity <= 0 {
		defaults := DefaultWorkerPoolConfig()
		logger.Warn("invalid pool capacity specified, using default",
			"specified_capacity", config.Capacity,
			"default_capacity", defaults.Capacity)
		config.Capacity = defaults.Capacity
	}
	if config.TaskTimeout < 0 {
		config.TaskTimeout = 0
	}
	if config.WorkerInit == nil {
		config.WorkerInit = Handlers(RegisterEcho)
	}

	return &Pool{
		config:     config,
		logger:     logger.With("component", "task_pool"),
		submitCh:   make(chan submitRequest),
		cancelCh:   make(chan cancelRequest),
		statsCh:    make(chan chan Stats),
		shutdownCh: make(chan struct{}),
		forceCh:    make(chan struct{}),
		results:    make(chan workerResult, config.Capacity),
		crashes:    make(chan workerCrash, config.Capacity),
		timeouts:   make(chan timeoutNotice, config.Capacity),
		stopped:    make(chan struct{}),
		queue:      newTaskQueue(config.Capacity * 4),
		workers:    make(map[uint64]*worker, config.Capacity),
		tasks:      make(map[uint64]*task),
	}
}

// SetEventEmitter sets the emitter that receives pool lifecycle events.
// It must be called before Start.
func (p *Pool) SetEventEmitter(emitter events.EventEmitter) {
	p.emitter = emitter
}

// Capacity returns the fixed number of workers.
func (p *Pool) Capacity() int {
	return p.config.Capacity
}

// Start spawns the workers and the supervisor. If any worker cannot be
// created, the workers spawned so far are stopped, the pool is left closed
// and an error wrapping ErrWorkerSpawnFailure is returned.
func (p *Pool) Start() error {
	if !p.started.CompareAndSwap(false, true) {
		return errors.New("pool already started")
	}

	for i := 0; i < p.config.Capacity; i++ {
		if _, err := p.spawnWorker(); err != nil {
			p.logger.Error("failed to start worker pool",
				"error", err,
				"spawned", len(p.workers),
				"capacity", p.config.Capacity)
			p.closing = true
			p.terminate()
			return err
		}
	}

	p.logger.Info("worker pool started",
		"capacity", p.config.Capacity,
		"task_timeout", p.config.TaskTimeout)

	go p.supervise()
	return nil
}

// Submit hands a payload to the pool and returns a handle for its result.
// The task is queued behind earlier submissions and dispatched as soon as a
// worker is idle. ctx bounds only the handoff to the supervisor.
//
// Returns ErrPoolClosed once shutdown has begun and an error wrapping
// ErrInvalidPayload if the payload cannot be serialized.
func (p *Pool) Submit(ctx context.Context, payload Payload) (*Handle, error) {
	if !p.started.Load() {
		return nil, ErrPoolNotStarted
	}

	msg, err := payload.encode()
	if err != nil {
		return nil, err
	}

	h := &Handle{
		operation: payload.Operation,
		pool:      p,
		done:      make(chan struct{}),
	}
	req := submitRequest{
		task: &task{
			operation: payload.Operation,
			message:   msg,
			handle:    h,
		},
		ack: make(chan error, 1),
	}

	select {
	case p.submitCh <- req:
	case <-p.stopped:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := <-req.ack; err != nil {
		return nil, err
	}
	return h, nil
}

// Do submits the payload and waits for its result. If ctx ends while the task
// is still queued, the task is cancelled.
func (p *Pool) Do(ctx context.Context, payload Payload) (Result, error) {
	h, err := p.Submit(ctx, payload)
	if err != nil {
		return Result{}, err
	}

	result, err := h.Wait(ctx)
	if err != nil {
		if h.Cancel() {
			p.logger.Debug("cancelled queued task after caller gave up",
				"task_id", h.ID(),
				"operation", h.Operation())
		}
		return Result{}, fmt.Errorf("waiting for task %d: %w", h.ID(), err)
	}
	return result, nil
}

// cancel asks the supervisor to drop a queued task.
func (p *Pool) cancel(taskID uint64) bool {
	req := cancelRequest{taskID: taskID, ack: make(chan bool, 1)}
	select {
	case p.cancelCh <- req:
		return <-req.ack
	case <-p.stopped:
		return false
	}
}

// Stats returns a snapshot of the pool. After shutdown it returns the final
// snapshot taken when the supervisor stopped.
func (p *Pool) Stats() Stats {
	if !p.started.Load() {
		return Stats{Capacity: p.config.Capacity}
	}

	reply := make(chan Stats, 1)
	select {
	case p.statsCh <- reply:
		return <-reply
	case <-p.stopped:
		return p.final
	}
}

// Shutdown stops accepting submissions, lets queued and in-flight tasks run
// to completion and then stops the workers. If ctx ends first, every task
// still pending is failed with ErrShutdownTimeout and the returned error
// wraps ErrShutdownTimeout. Calling Shutdown more than once is safe.
func (p *Pool) Shutdown(ctx context.Context) error {
	if !p.started.Load() {
		return nil
	}

	p.shutdownOnce.Do(func() {
		close(p.shutdownCh)
	})

	select {
	case <-p.stopped:
		return p.shutdownErr
	case <-ctx.Done():
	}

	p.forceOnce.Do(func() {
		close(p.forceCh)
	})
	<-p.stopped
	return p.shutdownErr
}

// Done returns a channel that is closed once the pool has stopped.
func (p *Pool) Done() <-chan struct{} {
	return p.stopped
}
