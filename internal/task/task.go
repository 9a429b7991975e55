package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values. A task is in exactly one of them at a time.
const (
	TaskStatusQueued    TaskStatus = "queued"
	TaskStatusAssigned  TaskStatus = "assigned"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Payload is the unit of work submitted to the pool: the name of a registered
// operation plus its arguments. Arguments must be JSON serializable; workers
// only ever see the serialized form.
type Payload struct {
	Operation string `json:"operation"`
	Args      []any  `json:"args"`
}

// NewPayload creates a payload for the named operation.
func NewPayload(operation string, args ...any) Payload {
	return Payload{Operation: operation, Args: args}
}

// encode serializes the payload into the message handed to a worker.
func (p Payload) encode() ([]byte, error) {
	if p.Operation == "" {
		return nil, fmt.Errorf("%w: operation is required", ErrInvalidPayload)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return data, nil
}

// message is the serialized payload as decoded on the worker side.
type message struct {
	Operation string            `json:"operation"`
	Args      []json.RawMessage `json:"args"`
}

// Args are the serialized arguments of a task as seen by a handler.
type Args []json.RawMessage

// Len returns the number of arguments.
func (a Args) Len() int {
	return len(a)
}

// Decode unmarshals the i-th argument into v.
func (a Args) Decode(i int, v any) error {
	if i < 0 || i >= len(a) {
		return fmt.Errorf("%w: argument %d missing (have %d)", ErrInvalidPayload, i, len(a))
	}
	if err := json.Unmarshal(a[i], v); err != nil {
		return fmt.Errorf("%w: argument %d: %v", ErrInvalidPayload, i, err)
	}
	return nil
}

// String decodes the i-th argument as a string.
func (a Args) String(i int) (string, error) {
	var s string
	err := a.Decode(i, &s)
	return s, err
}

// Int decodes the i-th argument as an int.
func (a Args) Int(i int) (int, error) {
	var n int
	err := a.Decode(i, &n)
	return n, err
}

// Result is the settled outcome of a task: {ok:true, value} on success or
// {ok:false, errorKind, message} on failure.
type Result struct {
	OK        bool            `json:"ok"`
	Value     json.RawMessage `json:"value,omitempty"`
	ErrorKind ErrorKind       `json:"errorKind,omitempty"`
	Message   string          `json:"message,omitempty"`
}

func success(value json.RawMessage) Result {
	return Result{OK: true, Value: value}
}

func failure(err error) Result {
	return Result{OK: false, ErrorKind: KindOf(err), Message: err.Error()}
}

// Err returns nil for a successful result and a *ResultError otherwise.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return &ResultError{Kind: r.ErrorKind, Message: r.Message}
}

// Decode unmarshals the result value into v, or returns the result's error.
func (r Result) Decode(v any) error {
	if err := r.Err(); err != nil {
		return err
	}
	return json.Unmarshal(r.Value, v)
}

// task is the supervisor's record of a submitted payload. All fields are
// owned by the supervisor goroutine.
type task struct {
	id          uint64
	operation   string
	message     []byte
	submittedAt time.Time
	status      TaskStatus
	workerID    uint64
	handle      *Handle
	timer       *time.Timer
}

// Handle is the caller's view of a submitted task. Its result is settled
// exactly once by the pool.
type Handle struct {
	id          uint64
	operation   string
	submittedAt time.Time
	pool        *Pool
	done        chan struct{}
	result      Result
}

// ID returns the pool-assigned task identifier. Identifiers increase
// monotonically in submission order.
func (h *Handle) ID() uint64 {
	return h.id
}

// Operation returns the name of the operation the task runs.
func (h *Handle) Operation() string {
	return h.operation
}

// SubmittedAt returns when the task was accepted by the pool.
func (h *Handle) SubmittedAt() time.Time {
	return h.submittedAt
}

// Done returns a channel that is closed once the result is settled.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the task settles or ctx ends. A context error does not
// cancel the task; use Cancel for that.
func (h *Handle) Wait(ctx context.Context) (Result, error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Cancel removes the task from the queue and settles it with ErrCancelled.
// It returns false when the task has already been assigned to a worker or
// has settled.
func (h *Handle) Cancel() bool {
	return h.pool.cancel(h.id)
}
