package concurrency_test

import (
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/momentics/loopws/api"
	"github.com/momentics/loopws/internal/concurrency"
)

func newLoop(t *testing.T) *concurrency.EventLoop {
	t.Helper()
	el := concurrency.NewEventLoop(4, log.New(io.Discard, "", 0))
	go el.Run()
	t.Cleanup(func() {
		el.Stop()
		<-el.Done()
	})
	return el
}

func TestEventLoopRunsTasksInOrder(t *testing.T) {
	el := newLoop(t)

	const n = 100
	var got []int
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		if err := el.Submit(func() {
			got = append(got, i)
			wg.Done()
		}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	wg.Wait()

	for i, v := range got {
		if v != i {
			t.Fatalf("task %d ran at position %d", v, i)
		}
	}
}

func TestEventLoopNestedSubmitRunsLater(t *testing.T) {
	el := newLoop(t)

	var order []string
	done := make(chan struct{})
	el.Submit(func() {
		el.Submit(func() {
			order = append(order, "inner")
			close(done)
		})
		order = append(order, "outer")
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("nested task never ran")
	}
	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Fatalf("unexpected order %v", order)
	}
}

func TestEventLoopSurvivesPanics(t *testing.T) {
	el := newLoop(t)

	el.Submit(func() { panic("boom") })
	done := make(chan struct{})
	el.Submit(func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop stopped after a panicking task")
	}
}

func TestEventLoopStopDrainsAndRejects(t *testing.T) {
	el := concurrency.NewEventLoop(1, log.New(io.Discard, "", 0))

	ran := 0
	for i := 0; i < 3; i++ {
		el.Submit(func() { ran++ })
	}
	if el.Pending() != 3 {
		t.Fatalf("Pending = %d, want 3", el.Pending())
	}
	el.Stop()
	el.Run()

	if ran != 3 {
		t.Fatalf("ran %d queued tasks, want 3", ran)
	}
	if err := el.Submit(func() {}); !errors.Is(err, api.ErrExecutorStopped) {
		t.Fatalf("Submit after Stop = %v", err)
	}
	if !el.Stopped() {
		t.Fatal("Stopped() = false")
	}
	select {
	case <-el.Done():
	default:
		t.Fatal("Done not closed after Run returned")
	}
}

func TestEventLoopRejectsNilTask(t *testing.T) {
	el := concurrency.NewEventLoop(0, nil)
	if err := el.Submit(nil); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("Submit(nil) = %v", err)
	}
}
