package emitter

import (
	"github.com/joeycumines/go-eventtarget"
	"github.com/joeycumines/logiface"
)

type (
	// Option configures an [Emitter].
	Option interface {
		applyEmitter(*emitterOptions) error
	}

	// ErrorHandler receives the errors of listeners, see
	// [eventtarget.ErrorHandler].
	ErrorHandler func(eventType string, err error)

	// WarningHandler receives process warnings, such as
	// [*MaxListenersExceededError].
	WarningHandler func(err error)

	// ListenerChangeFunc observes registration changes, see
	// [eventtarget.ListenerChangeFunc].
	ListenerChangeFunc func(emitter *Emitter, eventType string, change eventtarget.ListenerChange)

	emitterOptions struct {
		logger       *logiface.Logger[logiface.Event]
		onError      ErrorHandler
		onWarning    WarningHandler
		onChange     []ListenerChangeFunc
		maxListeners int
		stopOnError  bool
	}

	emitterOptionImpl struct {
		applyEmitterFunc func(*emitterOptions) error
	}
)

func (o *emitterOptionImpl) applyEmitter(opts *emitterOptions) error {
	return o.applyEmitterFunc(opts)
}

// WithLogger configures the logger used for warnings and (by default)
// listener errors.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &emitterOptionImpl{func(opts *emitterOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithErrorHandler configures the handler for errors returned by (or panics
// raised from) listeners.
func WithErrorHandler(handler ErrorHandler) Option {
	return &emitterOptionImpl{func(opts *emitterOptions) error {
		opts.onError = handler
		return nil
	}}
}

// WithStopOnError makes a listener error end the emit, leaving the
// remaining listeners (once listeners included) registered and uncalled.
// The error is still passed to the error handler.
func WithStopOnError() Option {
	return &emitterOptionImpl{func(opts *emitterOptions) error {
		opts.stopOnError = true
		return nil
	}}
}

// WithWarningHandler configures the handler for warnings. The default logs.
func WithWarningHandler(handler WarningHandler) Option {
	return &emitterOptionImpl{func(opts *emitterOptions) error {
		opts.onWarning = handler
		return nil
	}}
}

// WithListenerChangeHook adds a hook called after every registration
// change. May be given more than once.
func WithListenerChangeHook(hook ListenerChangeFunc) Option {
	return &emitterOptionImpl{func(opts *emitterOptions) error {
		if hook != nil {
			opts.onChange = append(opts.onChange, hook)
		}
		return nil
	}}
}

// WithMaxListeners sets the initial [Emitter.MaxListeners].
func WithMaxListeners(n int) Option {
	return &emitterOptionImpl{func(opts *emitterOptions) error {
		if n < 0 {
			return &eventtarget.RangeError{Message: `max listeners must be non-negative`}
		}
		opts.maxListeners = n
		return nil
	}}
}

func resolveEmitterOptions(opts []Option) (*emitterOptions, error) {
	cfg := &emitterOptions{
		maxListeners: DefaultMaxListeners,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyEmitter(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
