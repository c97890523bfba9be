// Package emitter implements the Node.js EventEmitter API on a flat
// [eventtarget.EventTarget].
//
// Emitted arguments are carried as the event detail. Registration of the
// same [*Listener] twice for one type is rejected, as in the underlying
// map, which is the only intentional deviation from Node.js.
//
// Usage:
//
//	e := emitter.New()
//	e.On("data", emitter.Func(func(args ...any) error {
//	    fmt.Println("received", args)
//	    return nil
//	}))
//	e.Emit("data", 1, 2, 3)
package emitter

import (
	"fmt"
	"slices"
	"sync"

	"github.com/joeycumines/go-eventtarget"
	"github.com/joeycumines/logiface"
)

const (
	// DefaultMaxListeners is the initial [Emitter.MaxListeners].
	DefaultMaxListeners = eventtarget.DefaultMaxListeners

	// ErrorEvent has special semantics, see [Emitter.Emit].
	ErrorEvent = `error`

	// ErrorMonitor listeners observe "error" events, without handling them.
	ErrorMonitor = `events.errorMonitor`

	// NewListenerEvent is emitted before a listener is added, with the type
	// and the listener as arguments.
	NewListenerEvent = `newListener`

	// RemoveListenerEvent is emitted after a listener is removed, with the
	// type and the listener as arguments.
	RemoveListenerEvent = `removeListener`
)

// Listener is a function registered on an [Emitter]. Identity is the
// pointer.
type Listener struct {
	fn     func(args ...any) error
	origin any
}

// onceListener marks a registration made via Once, which announces its own
// removal before it runs.
type onceListener struct {
	listener *Listener
	emitter  *Emitter
}

// Emitter is a Node.js style event emitter.
//
// Thread Safety:
// Emitter is safe for concurrent use. Listeners run on the goroutine that
// calls [Emitter.Emit].
type Emitter struct { //nolint:govet // betteralign:ignore
	target    *eventtarget.EventTarget
	logger    *logiface.Logger[logiface.Event]
	onWarning WarningHandler
	onChange  []ListenerChangeFunc
	warned    map[string]struct{}
	mu        sync.Mutex
}

// Func returns a new [*Listener].
func Func(fn func(args ...any) error) *Listener {
	return &Listener{fn: fn}
}

// Wrap returns a new [*Listener] adapting origin, e.g. a script function,
// which is reported by [Listener.Origin].
func Wrap(origin any, fn func(args ...any) error) *Listener {
	return &Listener{fn: fn, origin: origin}
}

// Origin returns the value given to [Wrap].
func (x *Listener) Origin() any {
	if x == nil {
		return nil
	}
	return x.origin
}

// Call invokes the listener.
func (x *Listener) Call(args ...any) error {
	if x == nil || x.fn == nil {
		return nil
	}
	return x.fn(args...)
}

// HandleEvent implements [eventtarget.Listener], passing the event detail as
// arguments.
func (x *Listener) HandleEvent(event *eventtarget.Event) error {
	args, _ := event.Detail().([]any)
	return x.Call(args...)
}

// Equal implements [eventtarget.Equaler], matching registrations made via
// Once.
func (x *Listener) Equal(other eventtarget.Listener) bool {
	return unwrap(other) == x
}

func (x onceListener) HandleEvent(event *eventtarget.Event) error {
	x.emitter.emitRemoved(event.Type(), x.listener)
	return x.listener.HandleEvent(event)
}

func (x onceListener) Equal(other eventtarget.Listener) bool {
	return x.listener.Equal(other)
}

func unwrap(l eventtarget.Listener) *Listener {
	switch v := l.(type) {
	case *Listener:
		return v
	case onceListener:
		return v.listener
	default:
		return nil
	}
}

// New creates an emitter. Panics if an option is invalid.
func New(opts ...Option) *Emitter {
	cfg, err := resolveEmitterOptions(opts)
	if err != nil {
		panic(fmt.Sprintf("emitter: %s", err))
	}

	e := &Emitter{
		logger:    cfg.logger,
		onWarning: cfg.onWarning,
		onChange:  cfg.onChange,
	}

	targetOpts := []eventtarget.Option{
		eventtarget.WithLogger(cfg.logger),
		eventtarget.WithMaxListeners(cfg.maxListeners),
		eventtarget.WithListenerChangeHook(e.listenerChanged),
	}
	if cfg.onError != nil || cfg.stopOnError {
		onError, stop, logger := cfg.onError, cfg.stopOnError, cfg.logger
		targetOpts = append(targetOpts, eventtarget.WithErrorHandler(func(event *eventtarget.Event, err error) {
			if stop {
				// the dispatcher claims once entries only as it reaches them
				event.StopImmediatePropagation()
			}
			if onError != nil {
				onError(event.Type(), err)
				return
			}
			logger.Err().
				Str(`type`, event.Type()).
				Err(err).
				Log(`uncaught exception in event handler`)
		}))
	}
	e.target = eventtarget.NewEventTarget(targetOpts...)

	return e
}

// Target returns the underlying target.
func (e *Emitter) Target() *eventtarget.EventTarget { return e.target }

// On appends listener for eventType, returning false if it is nil or
// already registered.
func (e *Emitter) On(eventType string, listener *Listener) bool {
	return e.addListener(eventType, listener, false, false)
}

// AddListener is an alias of [Emitter.On].
func (e *Emitter) AddListener(eventType string, listener *Listener) bool {
	return e.addListener(eventType, listener, false, false)
}

// Once appends listener for eventType, to be removed before its first call.
func (e *Emitter) Once(eventType string, listener *Listener) bool {
	return e.addListener(eventType, listener, true, false)
}

// PrependListener behaves like [Emitter.On], but the listener runs first.
func (e *Emitter) PrependListener(eventType string, listener *Listener) bool {
	return e.addListener(eventType, listener, false, true)
}

// PrependOnceListener behaves like [Emitter.Once], but the listener runs
// first.
func (e *Emitter) PrependOnceListener(eventType string, listener *Listener) bool {
	return e.addListener(eventType, listener, true, true)
}

func (e *Emitter) addListener(eventType string, listener *Listener, once, prepend bool) bool {
	if listener == nil || e.contains(eventType, listener) {
		return false
	}

	e.emit(NewListenerEvent, eventType, listener)

	var l eventtarget.Listener = listener
	if once {
		l = onceListener{listener: listener, emitter: e}
	}
	options := eventtarget.ListenerOptions{Once: once}

	var ok bool
	if prepend {
		ok = e.target.PrependEventListener(eventType, l, options)
	} else {
		ok = e.target.AddEventListener(eventType, l, options)
	}
	if ok {
		e.checkMaxListeners(eventType)
	}
	return ok
}

func (e *Emitter) contains(eventType string, listener *Listener) bool {
	for _, v := range e.target.Listeners().Find(eventType) {
		if !v.Removed() && listener.Equal(v.Listener()) {
			return true
		}
	}
	return false
}

// Off removes listener for eventType, returning false if it was not
// registered. Registrations made via Once are matched by the original
// listener.
func (e *Emitter) Off(eventType string, listener *Listener) bool {
	if listener == nil || !e.target.RemoveEventListener(eventType, listener, false) {
		return false
	}
	e.emitRemoved(eventType, listener)
	return true
}

// RemoveListener is an alias of [Emitter.Off].
func (e *Emitter) RemoveListener(eventType string, listener *Listener) bool {
	return e.Off(eventType, listener)
}

// RemoveAllListeners removes every listener for the given types, or for
// every type if none are given. A "removeListener" event is emitted for each
// listener removed, most recently added first.
func (e *Emitter) RemoveAllListeners(eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = e.EventNames()
		// so they observe every other removal
		if i := slices.Index(eventTypes, RemoveListenerEvent); i >= 0 {
			eventTypes = append(slices.Delete(eventTypes, i, i+1), RemoveListenerEvent)
		}
	}
	for _, eventType := range eventTypes {
		removed := e.Listeners(eventType)
		if !e.target.RemoveAllEventListeners(eventType) {
			continue
		}
		for i := len(removed) - 1; i >= 0; i-- {
			e.emitRemoved(eventType, removed[i])
		}
	}
}

// Emit calls every listener for eventType, in registration order, returning
// whether there were any.
//
// An "error" event is first passed to [ErrorMonitor] listeners. If there are
// no "error" listeners, an [*UnhandledError] is returned.
//
// Listener errors are passed to the error handler, see [WithErrorHandler].
// They do not stop the emit, unless configured with [WithStopOnError].
func (e *Emitter) Emit(eventType string, args ...any) (bool, error) {
	if eventType != ErrorEvent {
		return e.emit(eventType, args...), nil
	}

	e.emit(ErrorMonitor, args...)

	if e.emit(ErrorEvent, args...) {
		return true, nil
	}

	var value any
	if len(args) != 0 {
		value = args[0]
	}
	return false, &UnhandledError{Value: value}
}

func (e *Emitter) emit(eventType string, args ...any) bool {
	if !e.target.HasEventListeners(eventType) {
		return false
	}
	e.target.DispatchEvent(eventtarget.NewCustomEvent(eventType, args, eventtarget.EventInit{}))
	return true
}

func (e *Emitter) emitRemoved(eventType string, listener *Listener) {
	e.emit(RemoveListenerEvent, eventType, listener)
}

// EventNames returns the types with listeners, in order of first
// registration.
func (e *Emitter) EventNames() []string {
	return e.target.EventTypes()
}

// ListenerCount returns the number of listeners for eventType.
func (e *Emitter) ListenerCount(eventType string) int {
	return e.target.ListenerCount(eventType)
}

// Listeners returns the listeners for eventType, in call order.
func (e *Emitter) Listeners(eventType string) []*Listener {
	raw := e.target.GetListeners(eventType)
	if len(raw) == 0 {
		return nil
	}
	listeners := make([]*Listener, 0, len(raw))
	for _, v := range raw {
		if l := unwrap(v); l != nil {
			listeners = append(listeners, l)
		}
	}
	return listeners
}

// RawListeners returns the registrations for eventType, in call order,
// including the wrappers of registrations made via Once.
func (e *Emitter) RawListeners(eventType string) []eventtarget.Listener {
	return e.target.GetListeners(eventType)
}

// MaxListeners returns the per-type limit above which a warning is raised,
// 0 meaning unlimited.
func (e *Emitter) MaxListeners() int {
	return e.target.MaxListeners()
}

// SetMaxListeners sets the per-type warning limit.
func (e *Emitter) SetMaxListeners(n int) error {
	return e.target.SetMaxListeners(n)
}

func (e *Emitter) checkMaxListeners(eventType string) {
	if !e.target.ExceedsMaxListeners(eventType) {
		return
	}

	e.mu.Lock()
	_, warned := e.warned[eventType]
	if !warned {
		if e.warned == nil {
			e.warned = make(map[string]struct{})
		}
		e.warned[eventType] = struct{}{}
	}
	e.mu.Unlock()

	if warned {
		return
	}

	e.warn(&MaxListenersExceededError{
		Type:  eventType,
		Count: e.target.ListenerCount(eventType),
		Max:   e.target.MaxListeners(),
	})
}

func (e *Emitter) warn(err error) {
	if e.onWarning != nil {
		e.onWarning(err)
		return
	}
	e.logger.Warning().
		Err(err).
		Log(`emitter warning`)
}

func (e *Emitter) listenerChanged(target *eventtarget.EventTarget, eventType string, change eventtarget.ListenerChange) {
	if change != eventtarget.ListenerAdded && target.ListenerCount(eventType) == 0 {
		e.mu.Lock()
		delete(e.warned, eventType)
		e.mu.Unlock()
	}
	for _, hook := range e.onChange {
		hook(e, eventType, change)
	}
}
