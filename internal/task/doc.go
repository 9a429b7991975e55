// Package task runs CPU-bound operations on a bounded pool of isolated
// workers. Callers submit a Payload naming a registered operation and get a
// Handle whose Result settles exactly once.
//
// A single supervisor goroutine owns the FIFO queue, the worker table and the
// pending results. Workers receive serialized payloads over channels, look the
// operation up in their own dispatch table and report back a serialized value,
// an error, or a crash. Crashed and timed-out workers are replaced; shutdown
// drains the queue or, once its context ends, fails whatever is left.
package task
