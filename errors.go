package eventtarget

import (
	"errors"
	"fmt"
)

var (
	// ErrNilEvent is returned by [EventTarget.Dispatch] for a nil event.
	ErrNilEvent = errors.New(`eventtarget: nil event`)

	// ErrEventInFlight is returned by [EventTarget.Dispatch] if the event is
	// already being dispatched.
	ErrEventInFlight = errors.New(`eventtarget: event is already being dispatched`)
)

// ListenerError wraps an error returned by a [Listener].
type ListenerError struct {
	Err  error
	Type string
}

// Error implements the error interface.
func (e *ListenerError) Error() string {
	return fmt.Sprintf("eventtarget: listener for %q failed: %v", e.Type, e.Err)
}

// Unwrap returns the listener's error.
func (e *ListenerError) Unwrap() error {
	return e.Err
}

// PanicError is reported in place of a panic raised by a [Listener].
type PanicError struct {
	Value any
	Type  string
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("eventtarget: listener for %q panicked: %v", e.Type, e.Value)
}

// Unwrap returns the panic value, if it is an error.
//
// Example:
//
//	// If a listener panics with an error
//	panicErr := &PanicError{Value: io.EOF}
//
//	// We can check if it wraps a specific error
//	if errors.Is(panicErr, io.EOF) {
//	    // This will match
//	}
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// RangeError represents a range error, similar to JavaScript's RangeError.
type RangeError struct {
	Cause   error
	Message string
}

// Error implements the error interface.
func (e *RangeError) Error() string {
	if e.Message == "" {
		return "range error"
	}
	return e.Message
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *RangeError) Unwrap() error {
	return e.Cause
}

// TimeoutError is the reason used by [AbortSignalTimeout].
type TimeoutError struct {
	Cause   error
	Message string
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	if e.Message == "" {
		return "TimeoutError: The operation timed out"
	}
	return e.Message
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}
