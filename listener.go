package eventtarget

import (
	"reflect"
	"sync/atomic"
)

// Listener receives events dispatched to an [EventTarget].
//
// Implementations must be comparable with ==, or implement [Equaler].
// A returned error is reported through the target's error handler, and
// does not stop the dispatch.
type Listener interface {
	HandleEvent(event *Event) error
}

// Equaler may be implemented by a [Listener] whose identity is not plain ==
// (e.g. wrappers around script engine values).
type Equaler interface {
	Equal(other Listener) bool
}

// FuncListener adapts a function to [Listener]. Identity is the pointer.
type FuncListener struct {
	fn func(event *Event) error
}

// ListenerFunc returns a new [FuncListener]. Each call returns a distinct
// identity, so keep the returned value to remove it later.
func ListenerFunc(fn func(event *Event) error) *FuncListener {
	return &FuncListener{fn: fn}
}

// HandleEvent implements [Listener].
func (x *FuncListener) HandleEvent(event *Event) error {
	if x == nil || x.fn == nil {
		return nil
	}
	return x.fn(event)
}

// ListenerOptions configures a listener registration.
type ListenerOptions struct { //nolint:govet // betteralign:ignore
	// Signal removes the listener when aborted. Registration is a no-op if
	// the signal is already aborted.
	Signal *AbortSignal

	// Capture registers for the capturing phase, rather than bubbling.
	Capture bool

	// Passive listeners cannot cancel the event, calls to
	// [Event.PreventDefault] are ignored.
	Passive bool

	// Once removes the listener before its first invocation.
	Once bool
}

// RegisteredListener is a single entry in a [ListenerMap].
type RegisteredListener struct { //nolint:govet // betteralign:ignore
	listener Listener
	// detach is called once, on removal, with the map lock held
	detach   func()
	removed  atomic.Bool
	capture  bool
	passive  bool
	once     bool
}

func newRegisteredListener(listener Listener, options ListenerOptions) *RegisteredListener {
	return &RegisteredListener{
		listener: listener,
		capture:  options.Capture,
		passive:  options.Passive,
		once:     options.Once,
	}
}

// Listener returns the registered callback.
func (x *RegisteredListener) Listener() Listener { return x.listener }

// Capture reports whether the entry is for the capturing phase.
func (x *RegisteredListener) Capture() bool { return x.capture }

// Passive reports whether the entry is passive.
func (x *RegisteredListener) Passive() bool { return x.passive }

// Once reports whether the entry removes itself before its first invocation.
func (x *RegisteredListener) Once() bool { return x.once }

// Removed reports whether the entry has been removed. Removed entries are
// never invoked, even if still present in an in-flight snapshot.
func (x *RegisteredListener) Removed() bool { return x.removed.Load() }

func (x *RegisteredListener) markAsRemoved() {
	if x.removed.Swap(true) {
		return
	}
	if x.detach != nil {
		x.detach()
	}
}

// validListener reports whether the listener may be registered, i.e. whether
// it can later be found again by identity.
func validListener(l Listener) bool {
	if l == nil {
		return false
	}
	if _, ok := l.(Equaler); ok {
		return true
	}
	// checks dynamic values, e.g. a func held by an interface field
	return reflect.ValueOf(l).Comparable()
}

// sameListener compares two listeners, preferring [Equaler].
func sameListener(a, b Listener) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if e, ok := a.(Equaler); ok {
		return e.Equal(b)
	}
	if e, ok := b.(Equaler); ok {
		return e.Equal(a)
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) || !reflect.ValueOf(a).Comparable() || !reflect.ValueOf(b).Comparable() {
		return false
	}
	return a == b
}
