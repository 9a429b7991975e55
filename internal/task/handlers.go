package task

import (
	"context"
	"errors"
	"fmt"
)

// HandlerFunc executes one operation on a worker. It receives the serialized
// arguments of the task and returns a JSON serializable value.
type HandlerFunc func(ctx context.Context, args Args) (any, error)

// Registry maps operation names to handlers. Each worker builds its own
// registry when it starts and looks operations up in it for every task.
type Registry map[string]HandlerFunc

// Register adds a handler for the operation. It panics if the name is empty
// or already registered, mirroring http.ServeMux.
func (r Registry) Register(operation string, handler HandlerFunc) {
	if operation == "" {
		panic("task: empty operation name")
	}
	if handler == nil {
		panic("task: nil handler for operation " + operation)
	}
	if _, exists := r[operation]; exists {
		panic("task: duplicate registration for operation " + operation)
	}
	r[operation] = handler
}

// Lookup returns the handler registered for the operation.
func (r Registry) Lookup(operation string) (HandlerFunc, error) {
	handler, ok := r[operation]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, operation)
	}
	return handler, nil
}

// WorkerInit builds the dispatch table of a newly started worker. An error
// means the worker cannot be created.
type WorkerInit func(workerID uint64) (Registry, error)

// Handlers returns a WorkerInit that gives every worker a fresh Registry
// populated by the given registration functions.
func Handlers(register ...func(Registry)) WorkerInit {
	return func(uint64) (Registry, error) {
		registry := make(Registry)
		for _, fn := range register {
			fn(registry)
		}
		return registry, nil
	}
}

// OperationEcho is the name of the built-in echo operation.
const OperationEcho = "echo"

// RegisterEcho registers the echo operation, which returns its single
// argument unchanged.
func RegisterEcho(r Registry) {
	r.Register(OperationEcho, echo)
}

func echo(_ context.Context, args Args) (any, error) {
	if args.Len() != 1 {
		return nil, errors.New("echo takes exactly one argument")
	}
	return args[0], nil
}
