package task

import (
	"errors"
)

// ErrorKind classifies why a task failed. It is the errorKind field of a
// failed Result.
type ErrorKind string

// Error kinds reported through task results
const (
	KindWorkerSpawnFailure ErrorKind = "WorkerSpawnFailure"
	KindWorkerCrash        ErrorKind = "WorkerCrash"
	KindTaskTimeout        ErrorKind = "TaskTimeout"
	KindPoolClosed         ErrorKind = "PoolClosed"
	KindShutdownTimeout    ErrorKind = "ShutdownTimeout"
	KindCancelled          ErrorKind = "Cancelled"
	KindUnknownOperation   ErrorKind = "UnknownOperation"
	KindInvalidPayload     ErrorKind = "InvalidPayload"
	KindTaskFailed         ErrorKind = "TaskFailed"
)

// Common errors returned by the pool and carried by task results
var (
	// ErrWorkerSpawnFailure indicates a worker could not be created
	ErrWorkerSpawnFailure = errors.New("worker spawn failed")

	// ErrWorkerCrash indicates the worker running the task crashed
	ErrWorkerCrash = errors.New("worker crashed")

	// ErrTaskTimeout indicates the task exceeded its deadline and its worker was replaced
	ErrTaskTimeout = errors.New("task timed out")

	// ErrPoolClosed is returned by Submit once shutdown has begun
	ErrPoolClosed = errors.New("pool is closed")

	// ErrShutdownTimeout indicates the task was still pending when shutdown gave up waiting
	ErrShutdownTimeout = errors.New("pool shutdown timed out")

	// ErrCancelled indicates the task was removed from the queue before it ran
	ErrCancelled = errors.New("task cancelled")

	// ErrUnknownOperation indicates no handler is registered for the operation
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrInvalidPayload indicates the payload or its arguments could not be serialized
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrTaskFailed indicates the operation's handler returned an error
	ErrTaskFailed = errors.New("task failed")

	// ErrPoolNotStarted is returned when the pool is used before Start
	ErrPoolNotStarted = errors.New("pool has not been started")
)

// kindErrors is ordered so that KindOf resolves the most specific kind first.
var kindErrors = []struct {
	kind ErrorKind
	err  error
}{
	{KindWorkerSpawnFailure, ErrWorkerSpawnFailure},
	{KindWorkerCrash, ErrWorkerCrash},
	{KindTaskTimeout, ErrTaskTimeout},
	{KindPoolClosed, ErrPoolClosed},
	{KindShutdownTimeout, ErrShutdownTimeout},
	{KindCancelled, ErrCancelled},
	{KindUnknownOperation, ErrUnknownOperation},
	{KindInvalidPayload, ErrInvalidPayload},
	{KindTaskFailed, ErrTaskFailed},
}

// Err returns the sentinel error for the kind. Unrecognized kinds map to ErrTaskFailed.
func (k ErrorKind) Err() error {
	for _, ke := range kindErrors {
		if ke.kind == k {
			return ke.err
		}
	}
	return ErrTaskFailed
}

// KindOf classifies err. Errors that wrap none of the pool sentinels are
// reported as KindTaskFailed.
func KindOf(err error) ErrorKind {
	for _, ke := range kindErrors {
		if errors.Is(err, ke.err) {
			return ke.kind
		}
	}
	return KindTaskFailed
}

// ResultError is the error form of a failed Result. It unwraps to the
// sentinel for its kind so callers can use errors.Is.
type ResultError struct {
	Kind    ErrorKind
	Message string
}

// Error implements the error interface.
func (e *ResultError) Error() string {
	if e.Message == "" {
		return e.Kind.Err().Error()
	}
	return e.Message
}

// Unwrap returns the sentinel error for the kind.
func (e *ResultError) Unwrap() error {
	return e.Kind.Err()
}
