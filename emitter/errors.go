package emitter

import (
	"errors"
	"fmt"
)

// ErrUnhandledError is wrapped by [*UnhandledError] when the emitted value is
// not itself an error.
var ErrUnhandledError = errors.New(`emitter: unhandled error`)

// UnhandledError is returned by [Emitter.Emit] for an "error" event with no
// "error" listeners.
type UnhandledError struct {
	// Value is the first argument emitted, if any.
	Value any
}

// Error implements the error interface.
func (e *UnhandledError) Error() string {
	switch v := e.Value.(type) {
	case nil:
		return `emitter: unhandled error`
	case error:
		return `emitter: unhandled error: ` + v.Error()
	default:
		return fmt.Sprintf(`emitter: unhandled error: (%v)`, v)
	}
}

// Unwrap returns Value if it is an error, otherwise [ErrUnhandledError].
func (e *UnhandledError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return ErrUnhandledError
}

// MaxListenersExceededError is the warning raised, once per type, when an
// emitter has more listeners for a type than [Emitter.MaxListeners].
type MaxListenersExceededError struct {
	Type  string
	Count int
	Max   int
}

// Error implements the error interface.
func (e *MaxListenersExceededError) Error() string {
	return fmt.Sprintf(
		`MaxListenersExceededWarning: Possible EventEmitter memory leak detected. %d %s listeners added. MaxListeners is %d. Use SetMaxListeners() to increase limit`,
		e.Count, e.Type, e.Max,
	)
}
