// Package eventtarget implements DOM-style event listener storage and
// dispatch, suitable as the core of both tree-shaped event targets (capture
// and bubble phases, shadow-root retargeting) and flat Node.js-style event
// emitters.
//
// # Components
//
//   - [ListenerMap] maps event types to ordered sequences of
//     [RegisteredListener], guarded by a map-wide mutex that is never held
//     while a listener runs.
//   - [Event] is the mutable per-dispatch record: phase, propagation flags,
//     default-prevented state, target and current target.
//   - [EventPath] is the ordered list of [EventContext] an event visits,
//     innermost first.
//   - [Dispatch] runs the capturing pass (outermost to innermost) and the
//     bubbling pass (innermost to outermost) over an [EventPath].
//   - [EventTarget] owns one [ListenerMap] and exposes the
//     add/remove/dispatch API.
//   - [AbortController] and [AbortSignal] provide listener removal on abort
//     via [ListenerOptions].Signal.
//
// # Snapshot Semantics
//
// Each dispatch iterates a snapshot of the listener sequence taken when the
// current target is reached. Listeners added during a dispatch run on the next
// dispatch, not the current one. Listeners removed during a dispatch are
// marked removed, and are skipped if not yet reached.
//
// # Listener Identity
//
// A [Listener] is compared with ==, unless it implements [Equaler]. Use
// [ListenerFunc] to adapt a function; the returned pointer is the identity
// used for removal.
//
// # Error Isolation
//
// Errors returned by, and panics raised from, a listener are caught per
// listener and passed to the target's error handler (see [WithErrorHandler]).
// Dispatch then continues with the next listener. Without an error handler,
// the error is logged via the configured logiface logger, see
// [SetStructuredLogger] and [WithLogger].
//
// # Thread Safety
//
// Registration and removal are safe from any goroutine. Dispatch is
// synchronous, running every listener on the calling goroutine. An [Event]
// must not be shared between concurrent dispatches.
package eventtarget
