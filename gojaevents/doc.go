// Package gojaevents exposes the event APIs of
// [github.com/joeycumines/go-eventtarget] to JavaScript running in a
// [goja.Runtime]: EventTarget, Event, CustomEvent, AbortController,
// AbortSignal and the Node.js style EventEmitter.
//
// Script objects are backed by the Go types, so targets and events can be
// shared between Go and script, see [Module.WrapTarget] and
// [Module.WrapEvent]. A listener may be a function or an object with a
// handleEvent method, and is identified by the value itself, so the same
// function can be removed by passing it again.
//
// Errors thrown by listeners do not interrupt dispatch, and are passed to
// the handler configured by [WithErrorHandler], or logged. EventEmitter
// follows Node.js instead: the first throw stops the emit and propagates to
// the caller of emit.
//
// # Usage
//
//	runtime := goja.New()
//	m, err := gojaevents.New(runtime)
//	if err != nil {
//	    return err
//	}
//	if err := m.Install(nil); err != nil {
//	    return err
//	}
//	_, err = runtime.RunString(`
//	    const seen = [], target = new EventTarget();
//	    target.addEventListener('ping', e => seen.push(e.type), {once: true});
//	    target.dispatchEvent(new Event('ping'));
//	`)
package gojaevents
