package process

import (
	"github.com/joeycumines/go-eventloop"
	"github.com/joeycumines/go-eventtarget"
	"github.com/joeycumines/go-eventtarget/emitter"
	"github.com/joeycumines/logiface"
)

type (
	// Option configures a [Process].
	Option interface {
		applyProcess(*processOptions) error
	}

	// Channel is the IPC channel kept referenced while "message" or
	// "disconnect" listeners exist.
	Channel interface {
		Ref()
		Unref()
	}

	processOptions struct {
		scheduler    eventtarget.Scheduler
		channel      Channel
		logger       *logiface.Logger[logiface.Event]
		maxListeners int
	}

	processOptionImpl struct {
		applyProcessFunc func(*processOptions) error
	}
)

func (o *processOptionImpl) applyProcess(opts *processOptions) error {
	return o.applyProcessFunc(opts)
}

// WithLoop delivers signal events on loop. Equivalent to [WithScheduler].
func WithLoop(loop *eventloop.Loop) Option {
	return &processOptionImpl{func(opts *processOptions) error {
		if loop == nil {
			opts.scheduler = nil
		} else {
			opts.scheduler = loop
		}
		return nil
	}}
}

// WithScheduler delivers signal events via scheduler. By default they are
// dispatched on the goroutine that received them.
func WithScheduler(scheduler eventtarget.Scheduler) Option {
	return &processOptionImpl{func(opts *processOptions) error {
		opts.scheduler = scheduler
		return nil
	}}
}

// WithChannel configures the IPC channel.
func WithChannel(channel Channel) Option {
	return &processOptionImpl{func(opts *processOptions) error {
		opts.channel = channel
		return nil
	}}
}

// WithLogger configures the logger, used for warnings without listeners,
// and for uncaught errors.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &processOptionImpl{func(opts *processOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithMaxListeners sets the initial per-type warning limit.
func WithMaxListeners(n int) Option {
	return &processOptionImpl{func(opts *processOptions) error {
		if n < 0 {
			return &eventtarget.RangeError{Message: `max listeners must be non-negative`}
		}
		opts.maxListeners = n
		return nil
	}}
}

func resolveProcessOptions(opts []Option) (*processOptions, error) {
	cfg := &processOptions{
		maxListeners: emitter.DefaultMaxListeners,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyProcess(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
