package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// WorkerStatus represents the lifecycle state of a worker
type WorkerStatus string

// Possible worker status values. A worker is busy if and only if it has an
// assigned task.
const (
	WorkerStatusIdle        WorkerStatus = "idle"
	WorkerStatusBusy        WorkerStatus = "busy"
	WorkerStatusTerminating WorkerStatus = "terminating"
	WorkerStatusCrashed     WorkerStatus = "crashed"
)

// assignment is the message the supervisor sends to a worker.
type assignment struct {
	taskID  uint64
	message []byte
}

// workerResult is the message a worker sends back after running a task.
type workerResult struct {
	workerID uint64
	taskID   uint64
	value    json.RawMessage
	err      error
}

// workerCrash is sent instead of a result when a handler panics. The worker
// goroutine exits right after sending it.
type workerCrash struct {
	workerID uint64
	taskID   uint64
	reason   string
}

// worker is one isolated execution context. The supervisor owns status and
// taskID; the goroutine started by run only reads from assign and its own
// handlers.
type worker struct {
	id       uint64
	status   WorkerStatus
	taskID   uint64
	handlers Registry
	assign   chan assignment

	ctx    context.Context
	cancel context.CancelFunc
}

func newWorker(id uint64, handlers Registry) *worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &worker{
		id:       id,
		status:   WorkerStatusIdle,
		handlers: handlers,
		// One slot: a worker holds at most one assignment at a time
		assign: make(chan assignment, 1),
		ctx:    ctx,
		cancel: cancel,
	}
}

// run processes assignments until the assign channel is closed, the worker's
// context is cancelled or a handler panics.
func (w *worker) run(results chan<- workerResult, crashes chan<- workerCrash, stopped <-chan struct{}, logger *slog.Logger) {
	logger = logger.With("worker_id", w.id)
	logger.Debug("starting worker")

	for {
		select {
		case <-w.ctx.Done():
			logger.Debug("worker context cancelled, stopping worker")
			return

		case a, ok := <-w.assign:
			if !ok {
				logger.Debug("assignment channel closed, stopping worker")
				return
			}

			value, crash, err := w.execute(a, logger)
			if crash != nil {
				select {
				case crashes <- *crash:
				case <-stopped:
				case <-w.ctx.Done():
				}
				return
			}

			select {
			case results <- workerResult{workerID: w.id, taskID: a.taskID, value: value, err: err}:
			case <-stopped:
				return
			case <-w.ctx.Done():
				return
			}
		}
	}
}

// execute decodes the assignment, looks up its handler and runs it. A panic
// in the handler is converted into a crash report.
func (w *worker) execute(a assignment, logger *slog.Logger) (value json.RawMessage, crash *workerCrash, err error) {
	var msg message
	if err := json.Unmarshal(a.message, &msg); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	handler, err := w.handlers.Lookup(msg.Operation)
	if err != nil {
		return nil, nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("worker crashed while running task",
				"task_id", a.taskID,
				"operation", msg.Operation,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
			value, err = nil, nil
			crash = &workerCrash{
				workerID: w.id,
				taskID:   a.taskID,
				reason:   fmt.Sprintf("panic: %v", r),
			}
		}
	}()

	out, err := handler(w.ctx, Args(msg.Args))
	if err != nil {
		if !errors.Is(err, ErrInvalidPayload) && !errors.Is(err, ErrUnknownOperation) {
			err = fmt.Errorf("%w: %s: %v", ErrTaskFailed, msg.Operation, err)
		}
		return nil, nil, err
	}

	value, err = json.Marshal(out)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: result of %s is not serializable: %v", ErrInvalidPayload, msg.Operation, err)
	}
	return value, nil, nil
}
