package eventtarget

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/logiface"
)

// DefaultMaxListeners is the initial [EventTarget.MaxListeners].
const DefaultMaxListeners = 10

// ListenerChange is the kind of change passed to a [ListenerChangeFunc].
type ListenerChange uint8

const (
	// ListenerAdded follows a successful registration.
	ListenerAdded ListenerChange = iota
	// ListenerRemoved follows the removal of a single listener, including
	// the automatic removal of a once listener.
	ListenerRemoved
	// ListenerCleared follows the removal of every listener for a type.
	ListenerCleared
)

func (c ListenerChange) String() string {
	switch c {
	case ListenerAdded:
		return `added`
	case ListenerRemoved:
		return `removed`
	case ListenerCleared:
		return `cleared`
	default:
		return `unknown`
	}
}

type (
	// ListenerChangeFunc observes registration changes, e.g. to lazily
	// acquire a resource when the first listener for a type is added, and
	// release it when the last is removed. It runs synchronously, on the
	// goroutine that made the change, without any lock held.
	ListenerChangeFunc func(target *EventTarget, eventType string, change ListenerChange)

	// ErrorHandler receives the errors of listeners, as a [*ListenerError] or
	// [*PanicError]. It runs synchronously, within the dispatch.
	ErrorHandler func(event *Event, err error)

	shadowRoot struct {
		host *EventTarget
		mode ShadowRootMode
	}
)

// EventTarget provides DOM-style event dispatching.
//
// This implementation follows the W3C DOM EventTarget specification:
// https://dom.spec.whatwg.org/#interface-eventtarget
//
// A target without a parent, shadow root or global configuration dispatches
// along a flat, single context path, which is the Node.js emitter case.
//
// Thread Safety:
// EventTarget is safe for concurrent use from multiple goroutines.
// Listener storage is protected by an internal mutex, which is never held
// while listeners or hooks run.
//
// Usage:
//
//	target := eventtarget.NewEventTarget()
//
//	listener := eventtarget.ListenerFunc(func(e *eventtarget.Event) error {
//	    fmt.Println("Clicked!", e.Type())
//	    return nil
//	})
//	target.AddEventListener("click", listener, eventtarget.ListenerOptions{})
//
//	target.DispatchEvent(eventtarget.NewEvent("click", eventtarget.EventInit{}))
//
//	target.RemoveEventListener("click", listener, false)
type EventTarget struct { //nolint:govet // betteralign:ignore
	listeners    ListenerMap
	parent       atomic.Pointer[EventTarget]
	shadow       *shadowRoot
	global       *EventTarget
	legacyTypes  map[string]string
	onChange     []ListenerChangeFunc
	onError      ErrorHandler
	logger       *logiface.Logger[logiface.Event]
	attributes   map[string]Listener
	wrapper      any
	attrMu       sync.Mutex
	maxListeners atomic.Int64
}

// NewEventTarget creates a target. Panics if an option is invalid.
func NewEventTarget(opts ...Option) *EventTarget {
	cfg, err := resolveTargetOptions(opts)
	if err != nil {
		panic(fmt.Sprintf("eventtarget: %s", err))
	}
	x := &EventTarget{
		shadow:      cfg.shadow,
		global:      cfg.global,
		legacyTypes: cfg.legacyTypes,
		onChange:    cfg.onChange,
		onError:     cfg.onError,
		logger:      cfg.logger,
	}
	x.maxListeners.Store(int64(cfg.maxListeners))
	if cfg.parent != nil {
		x.parent.Store(cfg.parent)
	}
	return x
}

// AddEventListener registers listener for eventType. It returns false if
// an equal listener is already registered with the same capture value, if
// the listener is not comparable, or if options.Signal is already aborted.
func (x *EventTarget) AddEventListener(eventType string, listener Listener, options ListenerOptions) bool {
	return x.addEventListener(eventType, listener, options, false)
}

// PrependEventListener behaves like [EventTarget.AddEventListener], but the
// listener runs before those already registered.
func (x *EventTarget) PrependEventListener(eventType string, listener Listener, options ListenerOptions) bool {
	return x.addEventListener(eventType, listener, options, true)
}

func (x *EventTarget) addEventListener(eventType string, listener Listener, options ListenerOptions, prepend bool) bool {
	signal := options.Signal
	if signal != nil && signal.Aborted() {
		return false
	}
	if !validListener(listener) {
		return false
	}

	entry := newRegisteredListener(listener, options)
	if signal != nil {
		// removes this registration only, never a later one for the same
		// listener
		entry.detach = signal.addAlgorithm(func(any) {
			x.removeEntry(eventType, entry)
		})
	}

	if !x.listeners.insert(eventType, entry, prepend) {
		if entry.detach != nil {
			entry.detach()
		}
		return false
	}

	x.log().Debug().
		Str(`type`, eventType).
		Bool(`capture`, options.Capture).
		Bool(`once`, options.Once).
		Log(`listener added`)

	x.notify(eventType, ListenerAdded)

	// aborted after the check above, the algorithm may have run too early
	if signal != nil && signal.Aborted() {
		x.removeEntry(eventType, entry)
	}

	return true
}

// RemoveEventListener removes the listener registered with the given
// capture value, returning false if there was none.
func (x *EventTarget) RemoveEventListener(eventType string, listener Listener, capture bool) bool {
	if !x.listeners.Remove(eventType, listener, capture) {
		return false
	}
	x.log().Debug().
		Str(`type`, eventType).
		Bool(`capture`, capture).
		Log(`listener removed`)
	x.notify(eventType, ListenerRemoved)
	return true
}

func (x *EventTarget) removeEntry(eventType string, entry *RegisteredListener) bool {
	if !x.listeners.RemoveEntry(eventType, entry) {
		return false
	}
	x.notify(eventType, ListenerRemoved)
	return true
}

// RemoveAllEventListeners removes every listener for eventType, returning
// false if there were none.
func (x *EventTarget) RemoveAllEventListeners(eventType string) bool {
	if !x.listeners.RemoveAll(eventType) {
		return false
	}
	x.notify(eventType, ListenerCleared)
	return true
}

// RemoveAllListeners removes every listener, for every type.
func (x *EventTarget) RemoveAllListeners() {
	for _, eventType := range x.listeners.Clear() {
		x.notify(eventType, ListenerCleared)
	}
}

// ReplaceEventListener swaps oldListener for newListener, without changing
// the execution order. It returns false if oldListener is not registered
// with options.Capture, or newListener is already registered.
func (x *EventTarget) ReplaceEventListener(eventType string, oldListener, newListener Listener, options ListenerOptions) bool {
	return x.listeners.Replace(eventType, oldListener, newListener, options)
}

// SetAttributeEventListener sets the attribute-style handler for eventType
// (e.g. onclick), of which there is at most one per type. Replacing the
// handler keeps its position relative to other listeners. A nil listener
// removes the handler.
func (x *EventTarget) SetAttributeEventListener(eventType string, listener Listener) bool {
	// attrMu guards the slot only, the listener map calls hooks
	x.attrMu.Lock()
	old, exists := x.attributes[eventType]
	if listener != nil {
		if x.attributes == nil {
			x.attributes = make(map[string]Listener)
		}
		x.attributes[eventType] = listener
	} else {
		delete(x.attributes, eventType)
	}
	x.attrMu.Unlock()

	if listener == nil {
		if exists {
			x.RemoveEventListener(eventType, old, false)
		}
		return true
	}

	if exists && x.listeners.Replace(eventType, old, listener, ListenerOptions{}) {
		return true
	}

	if !x.AddEventListener(eventType, listener, ListenerOptions{}) {
		x.attrMu.Lock()
		if current, ok := x.attributes[eventType]; ok && sameListener(current, listener) {
			if exists {
				x.attributes[eventType] = old
			} else {
				delete(x.attributes, eventType)
			}
		}
		x.attrMu.Unlock()
		return false
	}

	return true
}

// AttributeEventListener returns the attribute-style handler for eventType,
// or nil.
func (x *EventTarget) AttributeEventListener(eventType string) Listener {
	x.attrMu.Lock()
	listener, ok := x.attributes[eventType]
	x.attrMu.Unlock()
	if !ok || findListener(x.listeners.Find(eventType), listener, false) < 0 {
		return nil
	}
	return listener
}

// Wrapper returns the value set by [EventTarget.SetWrapper].
func (x *EventTarget) Wrapper() any {
	x.attrMu.Lock()
	defer x.attrMu.Unlock()
	return x.wrapper
}

// SetWrapper associates v with the target, e.g. the object representing it
// in an embedded script runtime.
func (x *EventTarget) SetWrapper(v any) {
	x.attrMu.Lock()
	defer x.attrMu.Unlock()
	x.wrapper = v
}

// DispatchEvent dispatches event, returning false if it was canceled
// (see [Event.PreventDefault]). A nil event, or one already being
// dispatched, is not dispatched and false is returned; use
// [EventTarget.Dispatch] to distinguish these cases.
func (x *EventTarget) DispatchEvent(event *Event) bool {
	ok, _ := x.Dispatch(event)
	return ok
}

// Dispatch behaves like [EventTarget.DispatchEvent], but returns
// [ErrNilEvent] or [ErrEventInFlight] if the event cannot be dispatched.
func (x *EventTarget) Dispatch(event *Event) (bool, error) {
	if event == nil {
		return false, ErrNilEvent
	}
	if event.dispatching {
		return false, ErrEventInFlight
	}

	path := x.eventPath(event)

	event.resetBeforeDispatch(path)
	defer func() {
		event.resetAfterDispatch()
		event.SetTarget(x)
	}()
	event.SetTarget(x)

	Dispatch(path, event)

	return !event.defaultPrevented, nil
}

func (x *EventTarget) eventPath(event *Event) *EventPath {
	if x.shadow == nil && x.global == nil && x.Parent() == nil {
		return NewFlatEventPath(x)
	}
	return NewEventPath(x, event)
}

// ListenerCount returns the number of listeners for eventType.
func (x *EventTarget) ListenerCount(eventType string) int {
	return x.listeners.Len(eventType)
}

// HasEventListeners reports whether any listener is registered for
// eventType.
func (x *EventTarget) HasEventListeners(eventType string) bool {
	return x.listeners.Contains(eventType)
}

// HasActiveEventListeners reports whether a non-passive listener is
// registered for eventType.
func (x *EventTarget) HasActiveEventListeners(eventType string) bool {
	return x.listeners.ContainsActive(eventType)
}

// GetListeners returns the listeners for eventType, in execution order.
func (x *EventTarget) GetListeners(eventType string) []Listener {
	entries := x.listeners.Find(eventType)
	if len(entries) == 0 {
		return nil
	}
	listeners := make([]Listener, 0, len(entries))
	for _, v := range entries {
		if !v.Removed() {
			listeners = append(listeners, v.listener)
		}
	}
	return listeners
}

// EventTypes returns the types with listeners, in order of first
// registration.
func (x *EventTarget) EventTypes() []string {
	return x.listeners.EventTypes()
}

// Listeners exposes the underlying map, e.g. for [ListenerMap.Find].
// Mutating it directly bypasses change hooks.
func (x *EventTarget) Listeners() *ListenerMap {
	return &x.listeners
}

// MaxListeners returns the advisory per-type listener limit, 0 meaning
// unlimited. The target does not enforce it, see
// [EventTarget.ExceedsMaxListeners].
func (x *EventTarget) MaxListeners() int {
	return int(x.maxListeners.Load())
}

// SetMaxListeners sets the advisory per-type listener limit.
func (x *EventTarget) SetMaxListeners(n int) error {
	if n < 0 {
		return &RangeError{Message: fmt.Sprintf(`eventtarget: max listeners must be non-negative, got %d`, n)}
	}
	x.maxListeners.Store(int64(n))
	return nil
}

// ExceedsMaxListeners reports whether eventType has more listeners than
// [EventTarget.MaxListeners] allows.
func (x *EventTarget) ExceedsMaxListeners(eventType string) bool {
	n := x.MaxListeners()
	return n > 0 && x.ListenerCount(eventType) > n
}

// Parent returns the parent in the event path, or nil.
func (x *EventTarget) Parent() *EventTarget {
	return x.parent.Load()
}

// SetParent sets the parent in the event path, nil detaching the target.
// It returns an error if the target is a shadow root, or if parent is the
// target or one of its descendants.
func (x *EventTarget) SetParent(parent *EventTarget) error {
	if x.shadow != nil && parent != nil {
		return errors.New(`eventtarget: shadow root must not have a parent`)
	}
	for v := parent; v != nil; v = v.up() {
		if v == x {
			return errors.New(`eventtarget: parent would create a cycle`)
		}
	}
	x.parent.Store(parent)
	return nil
}

// ShadowHost returns the host if the target is a shadow root, or nil.
func (x *EventTarget) ShadowHost() *EventTarget {
	if x.shadow == nil {
		return nil
	}
	return x.shadow.host
}

// up returns the next target toward the root, crossing shadow boundaries.
func (x *EventTarget) up() *EventTarget {
	if x.shadow != nil {
		return x.shadow.host
	}
	return x.Parent()
}

func (x *EventTarget) notify(eventType string, change ListenerChange) {
	for _, hook := range x.onChange {
		hook(x, eventType, change)
	}
}

// invoke calls the listener, reporting any error or panic.
func (x *EventTarget) invoke(event *Event, listener Listener) {
	if err := callListener(event, listener); err != nil {
		x.reportError(event, err)
	}
}

func callListener(event *Event, listener Listener) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Type: event.Type(), Stack: debug.Stack()}
		}
	}()
	if e := listener.HandleEvent(event); e != nil {
		return &ListenerError{Type: event.Type(), Err: e}
	}
	return nil
}

func (x *EventTarget) reportError(event *Event, err error) {
	if x.onError != nil {
		x.onError(event, err)
		return
	}
	x.logUncaught(event, err)
}
