// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package eventtarget

import (
	"errors"
	"maps"

	"github.com/joeycumines/logiface"
)

// targetOptions holds configuration for [EventTarget] creation.
type targetOptions struct {
	logger       *logiface.Logger[logiface.Event]
	onError      ErrorHandler
	parent       *EventTarget
	shadow       *shadowRoot
	global       *EventTarget
	legacyTypes  map[string]string
	onChange     []ListenerChangeFunc
	maxListeners int
}

// Option configures an [EventTarget].
type Option interface {
	applyTarget(*targetOptions) error
}

// targetOptionImpl implements [Option] via a closure.
type targetOptionImpl struct {
	applyTargetFunc func(*targetOptions) error
}

func (o *targetOptionImpl) applyTarget(opts *targetOptions) error {
	return o.applyTargetFunc(opts)
}

// WithLogger configures the logger, overriding the package logger set by
// [SetStructuredLogger].
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &targetOptionImpl{func(opts *targetOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithErrorHandler configures the handler for errors returned by (or panics
// raised from) listeners. The default logs them, rate limited per type.
func WithErrorHandler(handler ErrorHandler) Option {
	return &targetOptionImpl{func(opts *targetOptions) error {
		opts.onError = handler
		return nil
	}}
}

// WithListenerChangeHook adds a hook, called synchronously after every
// successful registration or removal. May be given more than once, hooks
// are called in the order given.
func WithListenerChangeHook(hook ListenerChangeFunc) Option {
	return &targetOptionImpl{func(opts *targetOptions) error {
		if hook != nil {
			opts.onChange = append(opts.onChange, hook)
		}
		return nil
	}}
}

// WithMaxListeners sets the initial value for [EventTarget.MaxListeners].
func WithMaxListeners(n int) Option {
	return &targetOptionImpl{func(opts *targetOptions) error {
		if n < 0 {
			return &RangeError{Message: `max listeners must be non-negative`}
		}
		opts.maxListeners = n
		return nil
	}}
}

// WithParent sets the initial parent, see [EventTarget.SetParent].
func WithParent(parent *EventTarget) Option {
	return &targetOptionImpl{func(opts *targetOptions) error {
		opts.parent = parent
		return nil
	}}
}

// WithShadowRoot makes the target a shadow root attached to host. Events
// reach the host only if composed, or if they originated from a deeper
// shadow tree. Shadow roots have no parent.
func WithShadowRoot(host *EventTarget, mode ShadowRootMode) Option {
	return &targetOptionImpl{func(opts *targetOptions) error {
		if host == nil {
			return errors.New(`shadow root host must not be nil`)
		}
		opts.shadow = &shadowRoot{host: host, mode: mode}
		return nil
	}}
}

// WithGlobal configures a target that receives events after this target,
// when this target is the root of the path. This is the relationship
// between a document and its window.
func WithGlobal(global *EventTarget) Option {
	return &targetOptionImpl{func(opts *targetOptions) error {
		opts.global = global
		return nil
	}}
}

// WithLegacyTypes configures aliases, mapping event type to legacy type.
// Trusted events fall back to the legacy type's listeners when there are no
// listeners for their own type.
func WithLegacyTypes(aliases map[string]string) Option {
	return &targetOptionImpl{func(opts *targetOptions) error {
		if len(aliases) == 0 {
			return nil
		}
		if opts.legacyTypes == nil {
			opts.legacyTypes = make(map[string]string, len(aliases))
		}
		maps.Copy(opts.legacyTypes, aliases)
		return nil
	}}
}

// resolveTargetOptions applies the given options to the defaults.
func resolveTargetOptions(opts []Option) (*targetOptions, error) {
	cfg := &targetOptions{
		maxListeners: DefaultMaxListeners,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyTarget(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.shadow != nil && cfg.parent != nil {
		return nil, errors.New(`shadow root must not have a parent`)
	}
	return cfg, nil
}
