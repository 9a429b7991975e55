package task

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/phrazzld/hashpool/internal/events"
)

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// Capacity is the fixed number of workers.
	// If zero or negative, defaults to the number of CPUs
	Capacity int

	// TaskTimeout is the per-task deadline. A task that runs longer is failed
	// with ErrTaskTimeout and its worker is replaced. Zero disables the deadline
	TaskTimeout time.Duration

	// WorkerInit builds the dispatch table of every worker, including
	// replacements started after a crash
	WorkerInit WorkerInit
}

// DefaultWorkerPoolConfig returns a WorkerPoolConfig with reasonable defaults
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		Capacity:    runtime.NumCPU(),
		TaskTimeout: 0,
		WorkerInit:  Handlers(RegisterEcho),
	}
}

// Stats is a point-in-time snapshot of the pool.
type Stats struct {
	Capacity  int    `json:"capacity"`
	Workers   int    `json:"workers"`
	Busy      int    `json:"busy"`
	Idle      int    `json:"idle"`
	Queued    int    `json:"queued"`
	Submitted uint64 `json:"submitted"`
	Completed uint64 `json:"completed"`
	Failed    uint64 `json:"failed"`
	Cancelled uint64 `json:"cancelled"`
	Crashes   uint64 `json:"crashes"`
	Timeouts  uint64 `json:"timeouts"`
	Respawns  uint64 `json:"respawns"`
	Closing   bool   `json:"closing"`
}

type submitRequest struct {
	task *task
	ack  chan error
}

type cancelRequest struct {
	taskID uint64
	ack    chan bool
}

type timeoutNotice struct {
	taskID   uint64
	workerID uint64
}

// supervise is the supervisor loop. It is the only goroutine that touches the
// queue, the worker map and the task map, and it never blocks on a worker.
func (p *Pool) supervise() {
	shutdownCh := p.shutdownCh
	forceCh := p.forceCh

	for {
		select {
		case req := <-p.submitCh:
			p.onSubmit(req)

		case req := <-p.cancelCh:
			req.ack <- p.onCancel(req.taskID)

		case r := <-p.results:
			p.onWorkerResult(r)

		case c := <-p.crashes:
			p.onWorkerCrash(c)

		case n := <-p.timeouts:
			p.onTaskTimeout(n)

		case reply := <-p.statsCh:
			reply <- p.snapshot()

		case <-shutdownCh:
			shutdownCh = nil
			p.closing = true
			p.logger.Info("pool shutdown requested",
				"queued", p.queue.Len(),
				"in_flight", p.busyCount())

		case <-forceCh:
			forceCh = nil
			p.forceShutdown()
		}

		if p.closing && len(p.tasks) == 0 {
			p.terminate()
			return
		}
	}
}

// spawnWorker creates a worker, builds its dispatch table and starts its
// goroutine. The worker starts idle.
func (p *Pool) spawnWorker() (*worker, error) {
	p.nextWorkerID++
	id := p.nextWorkerID

	handlers, err := p.config.WorkerInit(id)
	if err != nil {
		return nil, fmt.Errorf("%w: worker %d: %v", ErrWorkerSpawnFailure, id, err)
	}
	if handlers == nil {
		handlers = make(Registry)
	}

	w := newWorker(id, handlers)
	p.workers[id] = w
	p.idle = append(p.idle, id)

	go w.run(p.results, p.crashes, p.stopped, p.logger)

	p.emit(events.WorkerSpawned, func(e *events.PoolEvent) {
		e.WorkerID = id
	})
	return w, nil
}

func (p *Pool) onSubmit(req submitRequest) {
	if p.closing {
		req.ack <- ErrPoolClosed
		return
	}

	p.nextTaskID++
	t := req.task
	t.id = p.nextTaskID
	t.status = TaskStatusQueued
	t.submittedAt = time.Now()
	t.handle.id = t.id
	t.handle.submittedAt = t.submittedAt

	p.tasks[t.id] = t
	p.queue.Enqueue(t)
	p.stats.Submitted++
	req.ack <- nil

	p.emit(events.TaskSubmitted, func(e *events.PoolEvent) {
		e.TaskID = t.id
		e.Operation = t.operation
	})

	p.dispatch()
}

// dispatch assigns queued tasks to idle workers in FIFO order until one of
// the two runs out.
func (p *Pool) dispatch() {
	for p.queue.Len() > 0 {
		if len(p.workers) == 0 {
			p.failQueued(fmt.Errorf("%w: no live workers", ErrWorkerSpawnFailure))
			return
		}

		w := p.nextIdleWorker()
		if w == nil {
			return
		}

		t, _ := p.queue.Dequeue()
		p.assign(w, t)
	}
}

func (p *Pool) nextIdleWorker() *worker {
	for len(p.idle) > 0 {
		id := p.idle[0]
		p.idle = p.idle[1:]
		if w, ok := p.workers[id]; ok && w.status == WorkerStatusIdle {
			return w
		}
	}
	return nil
}

func (p *Pool) assign(w *worker, t *task) {
	w.status = WorkerStatusBusy
	w.taskID = t.id
	t.status = TaskStatusAssigned
	t.workerID = w.id

	// Never blocks: an idle worker's single-slot channel is empty
	w.assign <- assignment{taskID: t.id, message: t.message}

	if p.config.TaskTimeout > 0 {
		notice := timeoutNotice{taskID: t.id, workerID: w.id}
		t.timer = time.AfterFunc(p.config.TaskTimeout, func() {
			select {
			case p.timeouts <- notice:
			case <-p.stopped:
			}
		})
	}

	p.logger.Debug("task dispatched",
		"task_id", t.id,
		"operation", t.operation,
		"worker_id", w.id)

	p.emit(events.TaskDispatched, func(e *events.PoolEvent) {
		e.TaskID = t.id
		e.WorkerID = w.id
		e.Operation = t.operation
		e.Elapsed = time.Since(t.submittedAt)
	})
}

// release marks a busy worker idle again.
func (p *Pool) release(w *worker) {
	w.status = WorkerStatusIdle
	w.taskID = 0
	p.idle = append(p.idle, w.id)
}

// onWorkerResult settles the task the worker just finished and hands the
// worker the next queued task.
func (p *Pool) onWorkerResult(r workerResult) {
	w, ok := p.workers[r.workerID]
	if !ok || w.taskID != r.taskID {
		// The worker was replaced after a timeout; its late result is dropped
		p.logger.Debug("discarding result from replaced worker",
			"task_id", r.taskID,
			"worker_id", r.workerID)
		return
	}

	t := p.tasks[r.taskID]
	p.release(w)

	if r.err != nil {
		p.settle(t, failure(r.err))
	} else {
		p.settle(t, success(r.value))
	}

	p.dispatch()
}

// onWorkerCrash fails the crashed worker's task, replaces the worker and
// dispatches.
func (p *Pool) onWorkerCrash(c workerCrash) {
	w, ok := p.workers[c.workerID]
	if !ok || w.taskID != c.taskID {
		return
	}

	t := p.tasks[c.taskID]
	p.stats.Crashes++
	p.retire(w, WorkerStatusCrashed)

	p.logger.Warn("worker crashed",
		"worker_id", w.id,
		"task_id", t.id,
		"operation", t.operation)

	p.settle(t, failure(fmt.Errorf("%w: worker %d running %s: %s", ErrWorkerCrash, w.id, t.operation, c.reason)))
	p.emitCrash(w.id, t, KindWorkerCrash)

	p.replaceWorker()
	p.dispatch()
}

// onTaskTimeout treats the worker of an expired task as crashed.
func (p *Pool) onTaskTimeout(n timeoutNotice) {
	t, ok := p.tasks[n.taskID]
	if !ok || t.status != TaskStatusAssigned || t.workerID != n.workerID {
		return
	}
	w, ok := p.workers[n.workerID]
	if !ok {
		return
	}

	p.stats.Timeouts++
	p.retire(w, WorkerStatusCrashed)

	p.logger.Warn("task exceeded deadline, replacing worker",
		"worker_id", w.id,
		"task_id", t.id,
		"operation", t.operation,
		"timeout", p.config.TaskTimeout)

	p.settle(t, failure(fmt.Errorf("%w: %s exceeded %s", ErrTaskTimeout, t.operation, p.config.TaskTimeout)))
	p.emitCrash(w.id, t, KindTaskTimeout)

	p.replaceWorker()
	p.dispatch()
}

// retire removes a worker from the pool and cancels its context. A handler
// still running on it observes the cancellation; its result is ignored.
func (p *Pool) retire(w *worker, status WorkerStatus) {
	w.status = status
	w.taskID = 0
	delete(p.workers, w.id)
	w.cancel()
}

func (p *Pool) replaceWorker() {
	w, err := p.spawnWorker()
	if err != nil {
		p.logger.Error("failed to replace worker",
			"error", err,
			"live_workers", len(p.workers))
		return
	}
	p.stats.Respawns++
	p.logger.Info("worker replaced", "worker_id", w.id)
}

func (p *Pool) onCancel(taskID uint64) bool {
	t, ok := p.tasks[taskID]
	if !ok || t.status != TaskStatusQueued {
		return false
	}
	p.queue.Remove(taskID)
	p.stats.Cancelled++
	p.settle(t, failure(fmt.Errorf("%w: task %d removed from queue", ErrCancelled, taskID)))
	return true
}

// settle records the outcome of a task on its handle. It is called exactly
// once per task; the task leaves the pool's bookkeeping here.
func (p *Pool) settle(t *task, result Result) {
	if t.timer != nil {
		t.timer.Stop()
	}
	if result.OK {
		t.status = TaskStatusCompleted
		p.stats.Completed++
	} else {
		t.status = TaskStatusFailed
		p.stats.Failed++
	}
	delete(p.tasks, t.id)

	// Handlers observe the settlement before the caller does
	p.emit(events.TaskSettled, func(e *events.PoolEvent) {
		e.TaskID = t.id
		e.WorkerID = t.workerID
		e.Operation = t.operation
		e.ErrorKind = string(result.ErrorKind)
		e.Elapsed = time.Since(t.submittedAt)
	})

	t.handle.result = result
	close(t.handle.done)
}

func (p *Pool) failQueued(err error) int {
	queued := p.queue.Drain()
	for _, t := range queued {
		p.settle(t, failure(err))
	}
	return len(queued)
}

// forceShutdown fails everything still pending with ErrShutdownTimeout.
func (p *Pool) forceShutdown() {
	pending := p.failQueued(fmt.Errorf("%w: task was still queued", ErrShutdownTimeout))

	for _, w := range p.workers {
		if w.status != WorkerStatusBusy {
			continue
		}
		t := p.tasks[w.taskID]
		p.retire(w, WorkerStatusTerminating)
		p.settle(t, failure(fmt.Errorf("%w: task was still running on worker %d", ErrShutdownTimeout, w.id)))
		pending++
	}

	if pending > 0 {
		p.shutdownErr = fmt.Errorf("%w: %d tasks failed", ErrShutdownTimeout, pending)
	}
	p.closing = true

	p.logger.Warn("forced pool shutdown", "failed_tasks", pending)
}

// terminate stops every remaining worker and marks the pool stopped.
func (p *Pool) terminate() {
	for _, w := range p.workers {
		w.status = WorkerStatusTerminating
		close(w.assign)
		w.cancel()
	}

	p.emit(events.PoolShutdown, nil)

	p.final = p.snapshot()
	p.workers = make(map[uint64]*worker)
	p.idle = nil

	p.logger.Info("pool stopped",
		"submitted", p.final.Submitted,
		"completed", p.final.Completed,
		"failed", p.final.Failed)

	close(p.stopped)
}

func (p *Pool) busyCount() int {
	busy := 0
	for _, w := range p.workers {
		if w.status == WorkerStatusBusy {
			busy++
		}
	}
	return busy
}

func (p *Pool) snapshot() Stats {
	s := p.stats
	s.Capacity = p.config.Capacity
	s.Workers = len(p.workers)
	s.Busy = p.busyCount()
	s.Idle = s.Workers - s.Busy
	s.Queued = p.queue.Len()
	s.Closing = p.closing
	return s
}

func (p *Pool) emitCrash(workerID uint64, t *task, kind ErrorKind) {
	p.emit(events.WorkerCrashed, func(e *events.PoolEvent) {
		e.TaskID = t.id
		e.WorkerID = workerID
		e.Operation = t.operation
		e.ErrorKind = string(kind)
	})
}

func (p *Pool) emit(eventType events.EventType, fill func(*events.PoolEvent)) {
	if p.emitter == nil {
		return
	}
	event := events.NewPoolEvent(eventType)
	if fill != nil {
		fill(event)
	}
	event.QueueDepth = p.queue.Len()
	event.Busy = p.busyCount()

	if err := p.emitter.EmitEvent(context.Background(), event); err != nil {
		p.logger.Debug("event handler failed",
			"event_type", eventType,
			"error", err)
	}
}
