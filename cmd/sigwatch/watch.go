package main

import (
	"context"
	"errors"
	"time"

	"github.com/joeycumines/go-eventloop"
	"github.com/joeycumines/go-eventtarget/emitter"
	"github.com/joeycumines/go-eventtarget/process"
	"github.com/joeycumines/logiface"
)

// watch blocks until SIGTERM is received, ctx is done, or the timeout
// elapses (if positive).
func watch(ctx context.Context, logger *logiface.Logger[logiface.Event], names []string, timeout time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, timeout)
		defer cancelTimeout()
	}

	loop, err := eventloop.New()
	if err != nil {
		return err
	}
	defer loop.Close()

	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(ctx) }()

	p := process.New(
		process.WithLoop(loop),
		process.WithLogger(logger),
	)
	defer p.Close()

	stop := make(chan string, 1)
	p.On(`SIGTERM`, emitter.Func(func(...any) error {
		select {
		case stop <- `SIGTERM`:
		default:
		}
		return nil
	}))

	for _, name := range names {
		listener := emitter.Func(func(args ...any) error {
			name, _ := args[0].(string)
			number, _ := args[1].(int)
			logger.Info().
				Str(`signal`, name).
				Int(`number`, number).
				Log(`signal received`)
			return nil
		})
		if name == `SIGINT` {
			p.Once(name, listener)
		} else {
			p.On(name, listener)
		}
	}

	logger.Info().
		Int(`signals`, len(names)).
		Dur(`timeout`, timeout).
		Log(`watching`)

	select {
	case name := <-stop:
		logger.Info().
			Str(`signal`, name).
			Log(`stopping`)
	case <-ctx.Done():
		logger.Info().
			Err(ctx.Err()).
			Log(`stopping`)
	case err := <-loopDone:
		return err
	}

	cancel()
	err = <-loopDone
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	return err
}
