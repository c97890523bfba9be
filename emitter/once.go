package emitter

import (
	"context"
)

// Once blocks until eventType is emitted, returning its arguments.
//
// Unless eventType is "error", an "error" event ends the wait early,
// returning the first argument if it is an error, otherwise an
// [*UnhandledError]. If ctx is done first, its cause is returned.
// The listeners are removed before Once returns.
func Once(ctx context.Context, e *Emitter, eventType string) ([]any, error) {
	if ctx.Err() != nil {
		return nil, context.Cause(ctx)
	}

	type result struct {
		err  error
		args []any
	}
	ch := make(chan result, 1)
	send := func(r result) {
		select {
		case ch <- r:
		default:
		}
	}

	resolver := Func(func(args ...any) error {
		send(result{args: args})
		return nil
	})
	e.Once(eventType, resolver)
	defer e.Off(eventType, resolver)

	if eventType != ErrorEvent {
		rejecter := Func(func(args ...any) error {
			send(result{err: errorArg(args)})
			return nil
		})
		e.Once(ErrorEvent, rejecter)
		defer e.Off(ErrorEvent, rejecter)
	}

	select {
	case r := <-ch:
		return r.args, r.err
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}

func errorArg(args []any) error {
	var value any
	if len(args) != 0 {
		value = args[0]
	}
	if err, ok := value.(error); ok {
		return err
	}
	return &UnhandledError{Value: value}
}
