// Package events provides the lifecycle events published by the task pool.
//
// The pool's supervisor emits an event whenever a task is submitted, dispatched
// or settled, and whenever a worker is spawned or crashes. Handlers registered on
// an EventEmitter observe these notifications without the pool knowing who
// consumes them; the metrics collector and the pool's own tests are the main
// subscribers.
//
// The primary components are:
// - PoolEvent: a single lifecycle notification
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
package events
