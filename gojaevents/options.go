package gojaevents

import (
	"github.com/joeycumines/go-eventtarget"
	"github.com/joeycumines/logiface"
)

// ErrorHandler receives errors thrown by listeners, typically a
// [*goja.Exception] wrapped in an [*eventtarget.ListenerError].
type ErrorHandler func(err error)

// moduleOptions holds configuration for a [Module] instance.
type moduleOptions struct {
	logger    *logiface.Logger[logiface.Event]
	onError   ErrorHandler
	scheduler eventtarget.Scheduler
}

// Option configures a [Module] instance.
type Option interface {
	applyOption(*moduleOptions) error
}

// optionFunc implements [Option] via a closure.
type optionFunc struct {
	fn func(*moduleOptions) error
}

func (o *optionFunc) applyOption(opts *moduleOptions) error {
	return o.fn(opts)
}

// WithLogger configures the logger used for listener errors, when there is
// no [WithErrorHandler].
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionFunc{fn: func(opts *moduleOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithErrorHandler configures the handler for errors thrown by listeners.
// A throwing listener never interrupts dispatch.
func WithErrorHandler(handler ErrorHandler) Option {
	return &optionFunc{fn: func(opts *moduleOptions) error {
		opts.onError = handler
		return nil
	}}
}

// WithScheduler configures the scheduler that runs timer callbacks, i.e.
// for AbortSignal.timeout, which is unavailable without one. It must run
// tasks on the goroutine that owns the runtime, e.g. the *eventloop.Loop
// the runtime is driven by.
func WithScheduler(scheduler eventtarget.Scheduler) Option {
	return &optionFunc{fn: func(opts *moduleOptions) error {
		opts.scheduler = scheduler
		return nil
	}}
}

func resolveOptions(opts []Option) (*moduleOptions, error) {
	cfg := &moduleOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyOption(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
