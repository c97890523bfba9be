// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package eventtarget

import (
	"slices"
	"sync"
	"time"
)

// Scheduler posts a function to run on another goroutine, typically an
// event loop. It is satisfied by *eventloop.Loop (go-eventloop).
type Scheduler interface {
	Submit(task func()) error
}

// AbortSignal communicates that an operation should be aborted, and is
// itself an [EventTarget] that receives a single trusted, non-cancelable
// "abort" event.
//
// This implementation follows the W3C DOM AbortController/AbortSignal specification:
// https://dom.spec.whatwg.org/#interface-abortsignal
//
// Listeners registered with [ListenerOptions].Signal are removed before the
// "abort" event is dispatched.
//
// Thread Safety:
// AbortSignal is safe for concurrent access from multiple goroutines.
//
// Usage:
//
//	controller := eventtarget.NewAbortController()
//	signal := controller.Signal()
//
//	target.AddEventListener("message", listener, eventtarget.ListenerOptions{Signal: signal})
//
//	signal.OnAbort(func(reason any) {
//	    fmt.Println("Aborted with reason:", reason)
//	})
//
//	// removes listener, then calls the OnAbort handler
//	controller.Abort("User cancelled")
type AbortSignal struct { //nolint:govet // betteralign:ignore
	*EventTarget
	algorithms []*abortAlgorithm
	reason     any
	mu         sync.RWMutex
	aborted    bool
}

// newAbortSignal creates a new AbortSignal.
// Signals are created via AbortController, or the AbortSignal* functions.
func newAbortSignal() *AbortSignal {
	return &AbortSignal{EventTarget: NewEventTarget()}
}

// Aborted returns true if the signal has been aborted.
func (s *AbortSignal) Aborted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aborted
}

// Reason returns the abort reason, or nil if not aborted.
func (s *AbortSignal) Reason() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reason
}

// OnAbort registers a callback to be invoked when the signal is aborted,
// before the "abort" event is dispatched.
//
// If the signal is already aborted at the time of registration, the callback
// is invoked immediately with the current abort reason.
func (s *AbortSignal) OnAbort(handler func(reason any)) {
	if handler == nil {
		return
	}
	s.addAlgorithm(handler)
}

type abortAlgorithm struct {
	fn func(reason any)
}

// addAlgorithm returns a func that unregisters fn, or nil if the signal was
// already aborted, in which case fn has been called.
func (s *AbortSignal) addAlgorithm(fn func(reason any)) func() {
	s.mu.Lock()
	if s.aborted {
		reason := s.reason
		s.mu.Unlock()
		fn(reason)
		return nil
	}
	algorithm := &abortAlgorithm{fn: fn}
	s.algorithms = append(s.algorithms, algorithm)
	s.mu.Unlock()
	return func() { s.removeAlgorithm(algorithm) }
}

func (s *AbortSignal) removeAlgorithm(algorithm *abortAlgorithm) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.algorithms = slices.DeleteFunc(s.algorithms, func(v *abortAlgorithm) bool {
		return v == algorithm
	})
}

// ThrowIfAborted returns an [*AbortError] if the signal has been aborted.
func (s *AbortSignal) ThrowIfAborted() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.aborted {
		return &AbortError{Reason: s.reason}
	}
	return nil
}

// abort runs the abort algorithms, then dispatches the "abort" event.
// Subsequent calls are no-ops.
func (s *AbortSignal) abort(reason any) {
	s.mu.Lock()
	if s.aborted {
		s.mu.Unlock()
		return
	}
	s.aborted = true
	s.reason = reason
	algorithms := s.algorithms
	s.algorithms = nil
	s.mu.Unlock()

	for _, algorithm := range algorithms {
		algorithm.fn(reason)
	}

	s.DispatchEvent(NewEvent(`abort`, EventInit{Trusted: true}))
}

// AbortController aborts its [AbortSignal].
//
// This implementation follows the W3C DOM AbortController specification:
// https://dom.spec.whatwg.org/#interface-abortcontroller
//
// Thread Safety:
// AbortController is safe for concurrent access from multiple goroutines.
type AbortController struct {
	signal *AbortSignal
}

// NewAbortController creates a new AbortController with a fresh AbortSignal.
func NewAbortController() *AbortController {
	return &AbortController{
		signal: newAbortSignal(),
	}
}

// Signal returns the AbortSignal associated with this controller.
func (c *AbortController) Signal() *AbortSignal {
	return c.signal
}

// Abort aborts the controller's signal with the given reason.
//
// If reason is nil, an [*AbortError] is used as the reason. Calling Abort
// multiple times has no additional effect.
func (c *AbortController) Abort(reason any) {
	if reason == nil {
		reason = &AbortError{Reason: "Aborted"}
	}
	c.signal.abort(reason)
}

// AbortError represents an error that occurs when an operation is aborted.
//
// This corresponds to the DOMException with name "AbortError" in browsers.
type AbortError struct {
	// Reason contains the abort reason provided to AbortController.Abort().
	Reason any
}

// Error implements the error interface.
func (e *AbortError) Error() string {
	switch reason := e.Reason.(type) {
	case string:
		return "AbortError: " + reason
	case error:
		return "AbortError: " + reason.Error()
	default:
		return "AbortError: The operation was aborted"
	}
}

// Is implements errors.Is support for AbortError.
func (e *AbortError) Is(target error) bool {
	_, ok := target.(*AbortError)
	return ok
}

// Unwrap returns the underlying error if Reason is an error type.
func (e *AbortError) Unwrap() error {
	if err, ok := e.Reason.(error); ok {
		return err
	}
	return nil
}

// AbortSignalAbort returns a signal that is already aborted with reason,
// defaulting to an [*AbortError].
func AbortSignalAbort(reason any) *AbortSignal {
	c := NewAbortController()
	c.Abort(reason)
	return c.Signal()
}

// AbortSignalTimeout returns a signal that aborts with a [*TimeoutError]
// after delay. If scheduler is non-nil, the abort (including the "abort"
// event) is posted to it, falling back to the timer goroutine if it
// rejects the task.
func AbortSignalTimeout(delay time.Duration, scheduler Scheduler) *AbortSignal {
	c := NewAbortController()
	time.AfterFunc(delay, func() {
		abort := func() {
			c.Abort(&TimeoutError{})
		}
		if scheduler == nil || scheduler.Submit(abort) != nil {
			abort()
		}
	})
	return c.Signal()
}

// AbortSignalAny returns a signal that aborts when any of the given signals
// abort, with the same reason. It is already aborted if any input is.
// Nil signals are ignored.
func AbortSignalAny(signals ...*AbortSignal) *AbortSignal {
	composite := newAbortSignal()

	for _, sig := range signals {
		if sig != nil && sig.Aborted() {
			composite.abort(sig.Reason())
			return composite
		}
	}

	for _, sig := range signals {
		if sig == nil {
			continue
		}
		sig.OnAbort(composite.abort)
	}

	return composite
}
