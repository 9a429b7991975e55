package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType identifies what happened inside the pool.
type EventType string

// Pool lifecycle event types
const (
	TaskSubmitted  EventType = "task_submitted"
	TaskDispatched EventType = "task_dispatched"
	TaskSettled    EventType = "task_settled"
	WorkerSpawned  EventType = "worker_spawned"
	WorkerCrashed  EventType = "worker_crashed"
	PoolShutdown   EventType = "pool_shutdown"
)

// PoolEvent is a single notification published by the pool supervisor.
// Fields that do not apply to an event type are left at their zero value.
type PoolEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type indicates what happened
	Type EventType `json:"type"`

	// TaskID is the pool-assigned task identifier, if any
	TaskID uint64 `json:"task_id,omitempty"`

	// WorkerID is the worker involved, if any
	WorkerID uint64 `json:"worker_id,omitempty"`

	// Operation is the name of the operation the task runs
	Operation string `json:"operation,omitempty"`

	// ErrorKind is set on settled tasks that failed and on crashes
	ErrorKind string `json:"error_kind,omitempty"`

	// Elapsed is the queue wait for dispatches and the total time since
	// submission for settlements
	Elapsed time.Duration `json:"elapsed,omitempty"`

	// QueueDepth and Busy describe the pool right after the event
	QueueDepth int `json:"queue_depth"`
	Busy       int `json:"busy"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// NewPoolEvent creates a new PoolEvent of the given type.
func NewPoolEvent(eventType EventType) *PoolEvent {
	return &PoolEvent{
		ID:        uuid.New(),
		Type:      eventType,
		CreatedAt: time.Now(),
	}
}

// Failed reports whether the event carries an error kind.
func (e *PoolEvent) Failed() bool {
	return e.ErrorKind != ""
}

// EventHandler defines an interface for components that can handle events.
// Handlers run on the pool's supervisor goroutine and must return quickly.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *PoolEvent) error
}

// HandlerFunc adapts an ordinary function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *PoolEvent) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event *PoolEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows the pool to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *PoolEvent) error
}
