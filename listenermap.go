package eventtarget

import (
	"slices"
	"sync"
)

// ListenerMap maps event types to ordered listener sequences.
//
// Sequences are copy-on-write: every mutation installs a new slice, so a
// slice returned by [ListenerMap.Find] is a stable snapshot that later
// mutations never disturb. Entries removed after a snapshot was taken are
// still present in it, but report [RegisteredListener.Removed].
//
// Types are kept in order of first registration. Duplicate detection is a
// linear scan, per type, which assumes small listener counts.
//
// The zero value is ready to use. ListenerMap is safe for concurrent use.
type ListenerMap struct {
	entries []listenerSlot
	mu      sync.Mutex
}

type listenerSlot struct {
	eventType string
	listeners []*RegisteredListener
}

// Add appends a listener for eventType. It returns false, without side
// effects, if a live entry with the same listener and capture value already
// exists, or if the listener is nil or not comparable.
func (x *ListenerMap) Add(eventType string, listener Listener, options ListenerOptions) bool {
	return x.add(eventType, listener, options, false)
}

// Prepend behaves like [ListenerMap.Add], but inserts at the front of the
// sequence.
func (x *ListenerMap) Prepend(eventType string, listener Listener, options ListenerOptions) bool {
	return x.add(eventType, listener, options, true)
}

func (x *ListenerMap) add(eventType string, listener Listener, options ListenerOptions, prepend bool) bool {
	if !validListener(listener) {
		return false
	}
	return x.insert(eventType, newRegisteredListener(listener, options), prepend)
}

// insert adds a prepared entry, applying the same duplicate check as add.
func (x *ListenerMap) insert(eventType string, entry *RegisteredListener, prepend bool) bool {
	listener := entry.listener

	x.mu.Lock()
	defer x.mu.Unlock()

	i := x.indexOf(eventType)
	if i < 0 {
		x.entries = append(x.entries, listenerSlot{
			eventType: eventType,
			listeners: []*RegisteredListener{entry},
		})
		return true
	}

	current := x.entries[i].listeners
	if findListener(current, listener, entry.capture) >= 0 {
		return false
	}

	next := make([]*RegisteredListener, 0, len(current)+1)
	if prepend {
		next = append(next, entry)
		next = append(next, current...)
	} else {
		next = append(next, current...)
		next = append(next, entry)
	}
	x.entries[i].listeners = next

	return true
}

// Remove marks the matching entry removed and erases it. The type is erased
// once its sequence is empty. It returns false if there was no match.
func (x *ListenerMap) Remove(eventType string, listener Listener, capture bool) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	i := x.indexOf(eventType)
	if i < 0 {
		return false
	}

	j := findListener(x.entries[i].listeners, listener, capture)
	if j < 0 {
		return false
	}

	x.removeAt(i, j)

	return true
}

// RemoveEntry removes one specific entry, as returned by
// [ListenerMap.Find]. It returns false if the entry was already removed,
// making it suitable to claim a once listener exactly once.
func (x *ListenerMap) RemoveEntry(eventType string, entry *RegisteredListener) bool {
	if entry == nil {
		return false
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if entry.Removed() {
		return false
	}

	i := x.indexOf(eventType)
	if i < 0 {
		return false
	}

	for j, v := range x.entries[i].listeners {
		if v == entry {
			x.removeAt(i, j)
			return true
		}
	}

	return false
}

// RemoveAll erases every entry for eventType, returning whether any existed.
func (x *ListenerMap) RemoveAll(eventType string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	i := x.indexOf(eventType)
	if i < 0 {
		return false
	}

	for _, v := range x.entries[i].listeners {
		v.markAsRemoved()
	}
	x.entries = slices.Delete(x.entries, i, i+1)

	return true
}

// Clear erases every entry, returning the types that were present, in order
// of first registration.
func (x *ListenerMap) Clear() []string {
	x.mu.Lock()
	defer x.mu.Unlock()

	if len(x.entries) == 0 {
		return nil
	}

	types := make([]string, len(x.entries))
	for i, slot := range x.entries {
		types[i] = slot.eventType
		for _, v := range slot.listeners {
			v.markAsRemoved()
		}
	}
	x.entries = nil

	return types
}

// Replace swaps oldListener for newListener, keeping the position of the
// original entry, which is marked removed. The match uses options.Capture.
// It returns false if oldListener is not registered, or if newListener
// would duplicate a different live entry.
func (x *ListenerMap) Replace(eventType string, oldListener, newListener Listener, options ListenerOptions) bool {
	if !validListener(newListener) {
		return false
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	i := x.indexOf(eventType)
	if i < 0 {
		return false
	}

	current := x.entries[i].listeners
	j := findListener(current, oldListener, options.Capture)
	if j < 0 {
		return false
	}
	if k := findListener(current, newListener, options.Capture); k >= 0 && k != j {
		return false
	}

	next := make([]*RegisteredListener, len(current))
	copy(next, current)
	current[j].markAsRemoved()
	next[j] = newRegisteredListener(newListener, options)
	x.entries[i].listeners = next

	return true
}

// Find returns the current sequence for eventType, or nil. The slice is a
// shared snapshot, and must not be modified.
func (x *ListenerMap) Find(eventType string) []*RegisteredListener {
	x.mu.Lock()
	defer x.mu.Unlock()
	if i := x.indexOf(eventType); i >= 0 {
		return x.entries[i].listeners
	}
	return nil
}

// Contains reports whether any listener is registered for eventType.
func (x *ListenerMap) Contains(eventType string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.indexOf(eventType) >= 0
}

// ContainsActive reports whether a live, non-passive listener is registered
// for eventType.
func (x *ListenerMap) ContainsActive(eventType string) bool {
	for _, v := range x.Find(eventType) {
		if !v.Removed() && !v.Passive() {
			return true
		}
	}
	return false
}

// Len returns the number of listeners registered for eventType.
func (x *ListenerMap) Len(eventType string) int {
	return len(x.Find(eventType))
}

// IsEmpty reports whether no listeners are registered.
func (x *ListenerMap) IsEmpty() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.entries) == 0
}

// EventTypes returns the registered types, in order of first registration.
func (x *ListenerMap) EventTypes() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	if len(x.entries) == 0 {
		return nil
	}
	types := make([]string, len(x.entries))
	for i, slot := range x.entries {
		types[i] = slot.eventType
	}
	return types
}

// removeAt must be called with the lock held.
func (x *ListenerMap) removeAt(i, j int) {
	current := x.entries[i].listeners
	current[j].markAsRemoved()

	if len(current) == 1 {
		x.entries = slices.Delete(x.entries, i, i+1)
		return
	}

	next := make([]*RegisteredListener, 0, len(current)-1)
	next = append(next, current[:j]...)
	next = append(next, current[j+1:]...)
	x.entries[i].listeners = next
}

func (x *ListenerMap) indexOf(eventType string) int {
	for i := range x.entries {
		if x.entries[i].eventType == eventType {
			return i
		}
	}
	return -1
}

func findListener(listeners []*RegisteredListener, listener Listener, capture bool) int {
	for i, v := range listeners {
		if v.capture == capture && sameListener(v.listener, listener) {
			return i
		}
	}
	return -1
}
