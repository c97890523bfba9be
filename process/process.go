// Package process provides an emitter shaped like the Node.js process
// object: OS signals and IPC events follow their listeners, and uncaught
// errors, unhandled rejections and warnings are routed through events.
//
// Usage:
//
//	loop, _ := eventloop.New()
//	go loop.Run(ctx)
//
//	p := process.New(process.WithLoop(loop))
//	defer p.Close()
//
//	// installs the SIGTERM handler, listeners run on the loop
//	p.On("SIGTERM", emitter.Func(func(args ...any) error {
//	    name, number := args[0].(string), args[1].(int)
//	    ...
//	}))
package process

import (
	"errors"
	"fmt"
	"sync"

	"github.com/joeycumines/go-eventtarget"
	"github.com/joeycumines/go-eventtarget/emitter"
	"github.com/joeycumines/go-eventtarget/signals"
	"github.com/joeycumines/logiface"
)

// Event types with special handling.
const (
	MessageEvent                  = `message`
	DisconnectEvent               = `disconnect`
	WarningEvent                  = `warning`
	UncaughtExceptionEvent        = `uncaughtException`
	UncaughtExceptionMonitorEvent = `uncaughtExceptionMonitor`
	UnhandledRejectionEvent       = `unhandledRejection`
)

// ErrCaptureCallbackAlreadySet is returned by
// [Process.SetUncaughtExceptionCaptureCallback] if a callback is already
// set.
var ErrCaptureCallbackAlreadySet = errors.New(`process: uncaught exception capture callback already set`)

// Process is an [*emitter.Emitter] with process semantics.
//
// Thread Safety:
// Process is safe for concurrent use.
type Process struct { //nolint:govet // betteralign:ignore
	*emitter.Emitter
	bridge  *signals.Bridge
	hook    eventtarget.ListenerChangeFunc
	channel Channel
	logger  *logiface.Logger[logiface.Event]
	capture func(err error)
	mu      sync.Mutex
}

// New creates a process emitter. Panics if an option is invalid.
func New(opts ...Option) *Process {
	cfg, err := resolveProcessOptions(opts)
	if err != nil {
		panic(fmt.Sprintf("process: %s", err))
	}

	p := &Process{
		channel: cfg.channel,
		logger:  cfg.logger,
	}

	p.bridge = signals.NewBridge(
		signals.WithScheduler(cfg.scheduler),
		signals.WithLogger(cfg.logger),
		signals.WithEventFactory(signalEvent),
	)
	p.hook = p.bridge.Hook()

	p.Emitter = emitter.New(
		emitter.WithLogger(cfg.logger),
		emitter.WithMaxListeners(cfg.maxListeners),
		emitter.WithListenerChangeHook(p.listenerChanged),
		emitter.WithErrorHandler(p.listenerFailed),
		emitter.WithWarningHandler(p.EmitWarning),
	)

	return p
}

// signal listeners are called with the name and number
func signalEvent(delivery signals.Delivery) *eventtarget.Event {
	return eventtarget.NewCustomEvent(
		delivery.Name,
		[]any{delivery.Name, int(delivery.Signal)},
		eventtarget.EventInit{Trusted: true},
	)
}

func (p *Process) listenerChanged(e *emitter.Emitter, eventType string, change eventtarget.ListenerChange) {
	switch eventType {
	case MessageEvent, DisconnectEvent:
		if p.channel == nil {
			return
		}
		count := e.ListenerCount(eventType)
		if change == eventtarget.ListenerAdded {
			if count == 1 {
				p.channel.Ref()
			}
		} else if count == 0 {
			p.channel.Unref()
		}
	default:
		p.hook(e.Target(), eventType, change)
	}
}

func (p *Process) listenerFailed(eventType string, err error) {
	var listenerErr *eventtarget.ListenerError
	if errors.As(err, &listenerErr) {
		err = listenerErr.Err
	}

	// failures of the handlers themselves are not routed back to them
	if eventType != UncaughtExceptionEvent &&
		eventType != UncaughtExceptionMonitorEvent &&
		p.HandleUncaughtError(err) {
		return
	}

	p.logger.Err().
		Str(`type`, eventType).
		Err(err).
		Log(`uncaught exception`)
}

// HandleUncaughtError routes err as an uncaught exception, returning false
// if nothing handled it, in which case the caller decides what to do, e.g.
// exit.
//
// Monitor listeners always see err first. A capture callback, if set, takes
// precedence over "uncaughtException" listeners.
func (p *Process) HandleUncaughtError(err error) bool {
	_, _ = p.Emit(UncaughtExceptionMonitorEvent, err, UncaughtExceptionEvent)

	p.mu.Lock()
	capture := p.capture
	p.mu.Unlock()
	if capture != nil {
		capture(err)
		return true
	}

	if p.ListenerCount(UncaughtExceptionEvent) == 0 {
		return false
	}
	_, _ = p.Emit(UncaughtExceptionEvent, err, UncaughtExceptionEvent)
	return true
}

// SetUncaughtExceptionCaptureCallback sets (or with nil, clears) the
// callback that receives uncaught errors instead of "uncaughtException"
// listeners.
func (p *Process) SetUncaughtExceptionCaptureCallback(fn func(err error)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fn != nil && p.capture != nil {
		return ErrCaptureCallbackAlreadySet
	}
	p.capture = fn
	return nil
}

// HasUncaughtExceptionCaptureCallback reports whether a capture callback is
// set.
func (p *Process) HasUncaughtExceptionCaptureCallback() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.capture != nil
}

// HandleUnhandledRejection emits "unhandledRejection", returning false if
// there were no listeners.
func (p *Process) HandleUnhandledRejection(reason, promise any) bool {
	ok, _ := p.Emit(UnhandledRejectionEvent, reason, promise)
	return ok
}

// EmitWarning emits a "warning" event, or logs err if there are no
// listeners.
func (p *Process) EmitWarning(err error) {
	if err == nil {
		return
	}
	if ok, _ := p.Emit(WarningEvent, err); ok {
		return
	}
	p.logger.Warning().
		Err(err).
		Log(`process warning`)
}

// SignalInstalled reports whether the OS handler for the named signal is
// installed.
func (p *Process) SignalInstalled(name string) bool {
	return p.bridge.Installed(name)
}

// Close uninstalls all signal handlers. Listeners are left registered.
func (p *Process) Close() error {
	return p.bridge.Close()
}
