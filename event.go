package eventtarget

import (
	"time"
)

// Phase is the dispatch phase of an [Event].
type Phase uint8

const (
	// PhaseNone means the event is not being dispatched.
	PhaseNone Phase = iota
	// PhaseCapturing is the pass from the outermost context toward the target.
	PhaseCapturing
	// PhaseAtTarget means the current target is the target.
	PhaseAtTarget
	// PhaseBubbling is the pass from the target back out.
	PhaseBubbling
)

func (p Phase) String() string {
	switch p {
	case PhaseNone:
		return `none`
	case PhaseCapturing:
		return `capturing`
	case PhaseAtTarget:
		return `at-target`
	case PhaseBubbling:
		return `bubbling`
	default:
		return `unknown`
	}
}

// EventInit configures a new [Event].
type EventInit struct {
	// Bubbles enables the bubbling pass beyond the target.
	Bubbles bool
	// Cancelable allows [Event.PreventDefault].
	Cancelable bool
	// Composed allows the event to cross shadow root boundaries.
	Composed bool
	// Trusted marks the event as originating from the host rather than from
	// script. Only trusted events fall back to legacy type aliases.
	Trusted bool
}

// Event is the mutable record of one dispatch.
//
// This implementation follows the W3C DOM Event specification:
// https://dom.spec.whatwg.org/#interface-event
//
// Thread Safety:
// Event is NOT safe for concurrent access. An Event should only be used from
// the goroutine that dispatches it, and only one dispatch may be in flight
// at a time.
type Event struct { //nolint:govet // betteralign:ignore
	timeStamp     time.Time
	detail        any
	target        *EventTarget
	currentTarget *EventTarget
	underlying    *Event
	path          *EventPath
	wrapper       any
	eventType     string
	phase         Phase

	bubbles    bool
	cancelable bool
	composed   bool
	trusted    bool

	propagationStopped          bool
	immediatePropagationStopped bool
	defaultPrevented            bool
	inPassiveListener           bool
	dispatching                 bool
}

// NewEvent creates an event of the given type.
//
// Usage:
//
//	event := eventtarget.NewEvent("submit", eventtarget.EventInit{Cancelable: true})
//	if !target.DispatchEvent(event) {
//	    // a listener called event.PreventDefault()
//	}
func NewEvent(eventType string, init EventInit) *Event {
	return &Event{
		timeStamp:  time.Now(),
		eventType:  eventType,
		bubbles:    init.Bubbles,
		cancelable: init.Cancelable,
		composed:   init.Composed,
		trusted:    init.Trusted,
	}
}

// NewCustomEvent creates an event carrying detail, see [Event.Detail].
func NewCustomEvent(eventType string, detail any, init EventInit) *Event {
	e := NewEvent(eventType, init)
	e.detail = detail
	return e
}

// Type returns the event type.
func (e *Event) Type() string { return e.eventType }

// SetType changes the event type. The facade uses this to temporarily
// substitute a legacy alias, it should not otherwise be needed.
func (e *Event) SetType(eventType string) { e.eventType = eventType }

// Bubbles reports whether the event bubbles.
func (e *Event) Bubbles() bool { return e.bubbles }

// Cancelable reports whether the event can be canceled.
func (e *Event) Cancelable() bool { return e.cancelable }

// Composed reports whether the event crosses shadow root boundaries.
func (e *Event) Composed() bool { return e.composed }

// IsTrusted reports whether the host, rather than script, created the event.
func (e *Event) IsTrusted() bool { return e.trusted }

// TimeStamp returns the creation time.
func (e *Event) TimeStamp() time.Time { return e.timeStamp }

// Detail returns the custom data, see [NewCustomEvent].
func (e *Event) Detail() any { return e.detail }

// EventPhase returns the current phase.
func (e *Event) EventPhase() Phase { return e.phase }

// SetEventPhase sets the current phase.
func (e *Event) SetEventPhase(phase Phase) { e.phase = phase }

// Target returns the (possibly retargeted) target.
func (e *Event) Target() *EventTarget { return e.target }

// SetTarget sets the target.
func (e *Event) SetTarget(target *EventTarget) { e.target = target }

// CurrentTarget returns the target whose listeners are being invoked, or
// nil outside of dispatch.
func (e *Event) CurrentTarget() *EventTarget { return e.currentTarget }

// SetCurrentTarget sets the current target.
func (e *Event) SetCurrentTarget(target *EventTarget) { e.currentTarget = target }

// StopPropagation prevents the event from reaching any further contexts.
// Listeners on the current context still run.
func (e *Event) StopPropagation() {
	e.propagationStopped = true
}

// StopImmediatePropagation prevents any further listener from running,
// including those remaining on the current context.
func (e *Event) StopImmediatePropagation() {
	e.propagationStopped = true
	e.immediatePropagationStopped = true
}

// PropagationStopped reports whether [Event.StopPropagation] (or
// [Event.StopImmediatePropagation]) was called during this dispatch.
func (e *Event) PropagationStopped() bool { return e.propagationStopped }

// ImmediatePropagationStopped reports whether
// [Event.StopImmediatePropagation] was called during this dispatch.
func (e *Event) ImmediatePropagationStopped() bool { return e.immediatePropagationStopped }

// CancelBubble is the legacy alias of [Event.PropagationStopped].
func (e *Event) CancelBubble() bool { return e.propagationStopped }

// PreventDefault cancels the event, if it is cancelable and the current
// listener is not passive. Otherwise, it does nothing.
func (e *Event) PreventDefault() {
	if e.cancelable && !e.inPassiveListener {
		e.defaultPrevented = true
	}
}

// DefaultPrevented reports whether the event was canceled.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// ReturnValue is the legacy inverse of [Event.DefaultPrevented].
func (e *Event) ReturnValue() bool { return !e.defaultPrevented }

// InPassiveListener reports whether a passive listener is being invoked.
func (e *Event) InPassiveListener() bool { return e.inPassiveListener }

// IsBeingDispatched reports whether a dispatch of this event is in flight.
func (e *Event) IsBeingDispatched() bool { return e.dispatching }

// UnderlyingEvent returns the event that caused this one, if any.
func (e *Event) UnderlyingEvent() *Event { return e.underlying }

// SetUnderlyingEvent records the event that caused this one. It does nothing
// if that would create a cycle.
func (e *Event) SetUnderlyingEvent(underlying *Event) {
	for v := underlying; v != nil; v = v.underlying {
		if v == e {
			return
		}
	}
	e.underlying = underlying
}

// Wrapper returns the value set by [Event.SetWrapper].
func (e *Event) Wrapper() any { return e.wrapper }

// SetWrapper associates v with the event, see [EventTarget.SetWrapper].
func (e *Event) SetWrapper(v any) { e.wrapper = v }

// ComposedPath returns the targets the event visits, as visible from the
// current target, innermost first. Contexts inside closed shadow roots the
// current target cannot see are omitted. It returns nil outside of dispatch.
func (e *Event) ComposedPath() []*EventTarget {
	if e.path == nil || e.currentTarget == nil {
		return nil
	}
	return e.path.ComputePathUnclosedToTarget(e.currentTarget)
}

func (e *Event) resetBeforeDispatch(path *EventPath) {
	e.dispatching = true
	e.path = path
	e.inPassiveListener = false
}

// resetAfterDispatch clears the per-dispatch state, leaving defaultPrevented.
func (e *Event) resetAfterDispatch() {
	e.dispatching = false
	e.path = nil
	e.currentTarget = nil
	e.phase = PhaseNone
	e.propagationStopped = false
	e.immediatePropagationStopped = false
	e.inPassiveListener = false
}
