package gojaevents

import (
	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
)

// Require returns a [require.ModuleLoader] exporting EventEmitter, in the
// manner of the Node.js "events" module. The integrator registers the
// loader under whatever module name they choose:
//
//	registry := require.NewRegistry()
//	registry.RegisterNativeModule("events", gojaevents.Require())
//	registry.Enable(runtime)
//
// After registration, JavaScript code loads the module by name:
//
//	const EventEmitter = require('events');
//	const { EventTarget, Event, CustomEvent } = require('events');
//
// The provided options are captured and applied each time a new runtime
// calls require for this module.
func Require(opts ...Option) require.ModuleLoader {
	return func(runtime *goja.Runtime, module *goja.Object) {
		m, err := New(runtime, opts...)
		if err != nil {
			panic(runtime.NewGoError(err))
		}
		_ = module.Set(`exports`, m.eventEmitterCtor)
	}
}
