// File: internal/concurrency/eventloop.go
// Package concurrency implements the single-goroutine event loop that owns
// all connection state.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Tasks are queued in an unbounded FIFO and executed one at a time, in batches,
// by the goroutine that called Run. Nothing executed by the loop may block.

package concurrency

import (
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"

	"github.com/momentics/loopws/api"
)

// EventLoop serializes task execution onto one goroutine.
type EventLoop struct {
	mu        sync.Mutex
	tasks     *queue.Queue // of func()
	wake      chan struct{}
	stopCh    chan struct{}
	done      chan struct{}
	batchSize int
	running   int32
	stopped   int32
	stopOnce  sync.Once
	logger    *log.Logger
}

var _ api.Executor = (*EventLoop)(nil)

// NewEventLoop creates a new EventLoop. batchSize bounds how many tasks are
// taken off the queue per lock acquisition.
func NewEventLoop(batchSize int, logger *log.Logger) *EventLoop {
	if batchSize <= 0 {
		batchSize = 64
	}
	if logger == nil {
		logger = log.Default()
	}
	return &EventLoop{
		tasks:     queue.New(),
		wake:      make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
		batchSize: batchSize,
		logger:    logger,
	}
}

// Submit implements api.Executor.
func (el *EventLoop) Submit(task func()) error {
	if task == nil {
		return api.ErrInvalidArgument
	}
	el.mu.Lock()
	if atomic.LoadInt32(&el.stopped) == 1 {
		el.mu.Unlock()
		return api.ErrExecutorStopped
	}
	el.tasks.Add(task)
	el.mu.Unlock()

	select {
	case el.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pending reports the number of queued tasks.
func (el *EventLoop) Pending() int {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.tasks.Length()
}

// Run executes tasks until Stop is called. Tasks already queued when Stop is
// called are still executed. Run returns immediately if the loop was already
// started.
func (el *EventLoop) Run() {
	if !atomic.CompareAndSwapInt32(&el.running, 0, 1) {
		return
	}
	defer close(el.done)

	batch := make([]func(), 0, el.batchSize)
	for {
		batch = el.take(batch[:0])
		if len(batch) > 0 {
			for i, task := range batch {
				el.execute(task)
				batch[i] = nil
			}
			continue
		}
		select {
		case <-el.wake:
		case <-el.stopCh:
			// drain whatever raced in before the stop flag was set
			for {
				batch = el.take(batch[:0])
				if len(batch) == 0 {
					return
				}
				for _, task := range batch {
					el.execute(task)
				}
			}
		}
	}
}

// Stop refuses new tasks and makes Run return once the queue is empty.
// Safe to call from inside a task; it does not wait for Run to return.
func (el *EventLoop) Stop() {
	el.stopOnce.Do(func() {
		el.mu.Lock()
		atomic.StoreInt32(&el.stopped, 1)
		el.mu.Unlock()
		close(el.stopCh)
	})
}

// Done is closed when Run has returned.
func (el *EventLoop) Done() <-chan struct{} {
	return el.done
}

// Stopped reports whether Stop has been called.
func (el *EventLoop) Stopped() bool {
	return atomic.LoadInt32(&el.stopped) == 1
}

func (el *EventLoop) take(dst []func()) []func() {
	el.mu.Lock()
	defer el.mu.Unlock()
	for len(dst) < el.batchSize && el.tasks.Length() > 0 {
		dst = append(dst, el.tasks.Remove().(func()))
	}
	return dst
}

// execute runs one task; a panicking task must not take the loop down.
func (el *EventLoop) execute(task func()) {
	defer func() {
		if r := recover(); r != nil {
			el.logger.Printf("event loop: task panic: %v\n%s", r, debug.Stack())
		}
	}()
	task()
}
