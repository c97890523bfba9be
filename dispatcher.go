package eventtarget

type invokePhase uint8

const (
	invokeCapturing invokePhase = iota
	invokeBubbling
)

// Dispatch invokes the listeners of every context in path.
//
// The capturing pass visits contexts outermost to innermost, invoking
// capture listeners. The bubbling pass visits contexts innermost to
// outermost, invoking non-capture listeners; contexts other than the target
// are skipped if the event does not bubble. Either pass ends as soon as
// propagation is stopped.
//
// Dispatch does not reset the event; callers should use
// [EventTarget.DispatchEvent], which brackets it.
func Dispatch(path *EventPath, event *Event) {
	contexts := path.contexts

	for i := len(contexts) - 1; i >= 0; i-- {
		if event.propagationStopped {
			return
		}
		c := &contexts[i]
		if c.currentTarget == c.target {
			event.SetEventPhase(PhaseAtTarget)
		} else {
			event.SetEventPhase(PhaseCapturing)
		}
		c.handleLocalEvents(event, invokeCapturing)
	}

	for i := range contexts {
		if event.propagationStopped {
			return
		}
		c := &contexts[i]
		if c.currentTarget == c.target {
			event.SetEventPhase(PhaseAtTarget)
		} else if event.bubbles {
			event.SetEventPhase(PhaseBubbling)
		} else {
			continue
		}
		c.handleLocalEvents(event, invokeBubbling)
	}
}

func (c *EventContext) handleLocalEvents(event *Event, phase invokePhase) {
	event.SetTarget(c.target)
	event.SetCurrentTarget(c.currentTarget)
	c.currentTarget.fireEventListeners(event, phase)
}

// fireEventListeners invokes the listeners for the event's type, falling
// back to a legacy alias for trusted events with no listeners.
func (x *EventTarget) fireEventListeners(event *Event, phase invokePhase) {
	eventType := event.Type()

	if listeners := x.listeners.Find(eventType); listeners != nil {
		x.innerInvokeEventListeners(event, eventType, listeners, phase)
		return
	}

	if !event.IsTrusted() {
		return
	}

	legacyType, ok := x.legacyTypes[eventType]
	if !ok {
		return
	}

	if listeners := x.listeners.Find(legacyType); listeners != nil {
		event.SetType(legacyType)
		x.innerInvokeEventListeners(event, legacyType, listeners, phase)
		event.SetType(eventType)
	}
}

// innerInvokeEventListeners runs one snapshot, in registration order.
func (x *EventTarget) innerInvokeEventListeners(event *Event, eventType string, listeners []*RegisteredListener, phase invokePhase) {
	for _, entry := range listeners {
		if event.immediatePropagationStopped {
			break
		}

		if entry.Removed() {
			continue
		}

		if entry.capture != (phase == invokeCapturing) {
			continue
		}

		// removed from the live map before the call, losing a race to
		// another dispatch means it has already been claimed
		if entry.once && !x.removeEntry(eventType, entry) {
			continue
		}

		if entry.passive {
			event.inPassiveListener = true
		}
		x.invoke(event, entry.listener)
		if entry.passive {
			event.inPassiveListener = false
		}
	}
}
