//go:build linux || darwin

package eventtarget

import (
	"context"
	"testing"
	"time"

	"github.com/joeycumines/go-eventloop"
)

func newRunningLoop(t *testing.T) *eventloop.Loop {
	t.Helper()
	loop, err := eventloop.New()
	if err != nil {
		t.Fatalf("failed to create loop: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return loop
}

// TestAbortSignalTimeout_Loop tests the abort is delivered via the loop.
func TestAbortSignalTimeout_Loop(t *testing.T) {
	loop := newRunningLoop(t)

	// listeners run on the loop goroutine, so the target needs no locking
	target := NewEventTarget()
	var calls int
	result := make(chan int, 1)

	signal := AbortSignalTimeout(100*time.Millisecond, loop)
	if !target.AddEventListener("tick", ListenerFunc(func(*Event) error {
		calls++
		return nil
	}), ListenerOptions{Signal: signal}) {
		t.Fatal("expected add to succeed")
	}

	signal.AddEventListener("abort", ListenerFunc(func(e *Event) error {
		target.DispatchEvent(NewEvent("tick", EventInit{}))
		result <- calls
		return nil
	}), ListenerOptions{})

	if err := loop.Submit(func() {
		target.DispatchEvent(NewEvent("tick", EventInit{}))
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	select {
	case n := <-result:
		if n != 1 {
			t.Errorf("expected 1 call before abort, got %d", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for abort")
	}

	if _, ok := signal.Reason().(*TimeoutError); !ok {
		t.Errorf("expected *TimeoutError, got %T", signal.Reason())
	}
}
