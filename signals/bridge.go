// Package signals maps signal names to numbers, and bridges OS signals to
// events, installing a handler only while a target has listeners for it.
//
// Usage:
//
//	bridge := signals.NewBridge()
//	defer bridge.Close()
//
//	target := eventtarget.NewEventTarget(eventtarget.WithListenerChangeHook(bridge.Hook()))
//
//	// installs the SIGHUP handler
//	target.AddEventListener("SIGHUP", listener, eventtarget.ListenerOptions{})
//
//	// uninstalls it
//	target.RemoveEventListener("SIGHUP", listener, false)
package signals

import (
	"fmt"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"

	"github.com/joeycumines/go-eventtarget"
	"github.com/joeycumines/logiface"
)

// Delivery is the detail of the event dispatched for a received signal.
type Delivery struct {
	Name   string
	Signal syscall.Signal
}

// Bridge relays OS signals to the targets it is hooked into, see
// [Bridge.Hook].
//
// Each signal is relayed to at most one target at a time: the first that
// gains a listener for it. Other targets that gain listeners wait their
// turn, and the relay passes to one of them when the current target loses
// its last listener. The handler is uninstalled once no hooked target has
// a listener for the signal.
//
// Thread Safety:
// Bridge is safe for concurrent use.
type Bridge struct { //nolint:govet // betteralign:ignore
	scheduler eventtarget.Scheduler
	logger    *logiface.Logger[logiface.Event]
	factory   EventFactory
	relays    map[syscall.Signal]*relay
	waiting   map[syscall.Signal][]*eventtarget.EventTarget
	mu        sync.Mutex
	closed    bool
}

type relay struct {
	target *eventtarget.EventTarget
	ch     chan os.Signal
	done   chan struct{}
	name   string
	sig    syscall.Signal
}

// NewBridge creates a bridge. Panics if an option is invalid.
func NewBridge(opts ...Option) *Bridge {
	cfg, err := resolveBridgeOptions(opts)
	if err != nil {
		panic(fmt.Sprintf("signals: %s", err))
	}
	return &Bridge{
		scheduler: cfg.scheduler,
		logger:    cfg.logger,
		factory:   cfg.factory,
		relays:    make(map[syscall.Signal]*relay),
		waiting:   make(map[syscall.Signal][]*eventtarget.EventTarget),
	}
}

// Hook returns the listener change hook that drives the bridge, for use
// with [eventtarget.WithListenerChangeHook]. Types that are not catchable
// signals are ignored.
func (b *Bridge) Hook() eventtarget.ListenerChangeFunc {
	return b.listenerChanged
}

func (b *Bridge) listenerChanged(target *eventtarget.EventTarget, eventType string, change eventtarget.ListenerChange) {
	if !Catchable(eventType) {
		return
	}
	sig, _ := Number(eventType)
	if change == eventtarget.ListenerAdded {
		b.install(target, eventType, sig)
	} else {
		b.uninstall(target, eventType, sig)
	}
}

// the listener count is re-checked under the lock, so concurrent add and
// remove hooks settle on the final count
func (b *Bridge) install(target *eventtarget.EventTarget, name string, sig syscall.Signal) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || target.ListenerCount(name) == 0 {
		return
	}

	if r := b.relays[sig]; r != nil {
		if r.target != target && !slices.Contains(b.waiting[sig], target) {
			b.waiting[sig] = append(b.waiting[sig], target)
			b.logger.Debug().
				Str(`signal`, name).
				Log(`signal relayed to another target`)
		}
		return
	}

	r := &relay{
		target: target,
		ch:     make(chan os.Signal, 1),
		done:   make(chan struct{}),
		name:   name,
		sig:    sig,
	}
	signal.Notify(r.ch, sig)
	b.relays[sig] = r
	go b.run(r)

	b.logger.Debug().
		Str(`signal`, name).
		Log(`signal handler installed`)
}

func (b *Bridge) uninstall(target *eventtarget.EventTarget, name string, sig syscall.Signal) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if target.ListenerCount(name) != 0 {
		return
	}

	r := b.relays[sig]
	if r == nil || r.target != target {
		b.waiting[sig] = slices.DeleteFunc(b.waiting[sig], func(v *eventtarget.EventTarget) bool {
			return v == target
		})
		return
	}

	// hand over to the first waiting target still listening
	for len(b.waiting[sig]) != 0 {
		next := b.waiting[sig][0]
		b.waiting[sig] = b.waiting[sig][1:]
		if next.ListenerCount(name) != 0 {
			r.target = next
			b.logger.Debug().
				Str(`signal`, name).
				Log(`signal relay moved to another target`)
			return
		}
	}
	delete(b.waiting, sig)

	b.stop(r)

	b.logger.Debug().
		Str(`signal`, name).
		Log(`signal handler uninstalled`)
}

// stop must be called with the lock held.
func (b *Bridge) stop(r *relay) {
	signal.Stop(r.ch)
	close(r.done)
	delete(b.relays, r.sig)
}

func (b *Bridge) run(r *relay) {
	for {
		select {
		case <-r.done:
			return
		case <-r.ch:
			b.deliver(r)
		}
	}
}

func (b *Bridge) deliver(r *relay) {
	delivery := Delivery{Name: r.name, Signal: r.sig}
	b.mu.Lock()
	target := r.target
	b.mu.Unlock()
	dispatch := func() {
		target.DispatchEvent(b.factory(delivery))
	}
	if b.scheduler == nil {
		dispatch()
		return
	}
	if err := b.scheduler.Submit(dispatch); err != nil {
		b.logger.Warning().
			Str(`signal`, r.name).
			Err(err).
			Log(`signal dropped`)
	}
}

func defaultEvent(delivery Delivery) *eventtarget.Event {
	return eventtarget.NewCustomEvent(delivery.Name, delivery, eventtarget.EventInit{Trusted: true})
}

// Installed reports whether a handler is installed for the named signal.
func (b *Bridge) Installed(name string) bool {
	sig, ok := Number(name)
	if !ok {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.relays[sig] != nil
}

// Close uninstalls every handler. Later registrations install nothing.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for _, r := range b.relays {
		b.stop(r)
	}
	clear(b.waiting)
	return nil
}
