// Package api
// Author: momentics
//
// Executor contract for the single event-processing goroutine.

package api

// Executor runs tasks one at a time, in submission order, on one goroutine.
// Every transport completion and every user callback is delivered through it.
type Executor interface {
	// Submit schedules task for execution. It fails with ErrExecutorStopped
	// once the executor has been stopped.
	Submit(task func()) error
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(task func()) error

// Submit calls f(task).
func (f ExecutorFunc) Submit(task func()) error { return f(task) }
