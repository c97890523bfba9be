package gojaevents

import (
	"errors"

	"github.com/dop251/goja"
	"github.com/joeycumines/go-eventtarget/emitter"
)

// jsEmitter backs an EventEmitter instance.
type jsEmitter struct {
	module  *Module
	emitter *emitter.Emitter
	object  *goja.Object
	// thrown is the first value thrown by a listener in the current emit,
	// after which the remaining listeners are skipped
	thrown goja.Value
	depth  int
}

func (m *Module) setupEmitter() {
	m.eventEmitterCtor, m.eventEmitterProto = m.defineClass(`EventEmitter`, m.constructEmitter, nil)

	ctor := m.eventEmitterCtor
	_ = ctor.Set(`EventEmitter`, ctor)
	_ = ctor.Set(`EventTarget`, m.eventTargetCtor)
	_ = ctor.Set(`Event`, m.eventCtor)
	_ = ctor.Set(`CustomEvent`, m.customEventCtor)
	_ = ctor.Set(`defaultMaxListeners`, emitter.DefaultMaxListeners)
	_ = ctor.Set(`errorMonitor`, emitter.ErrorMonitor)

	proto := m.eventEmitterProto
	for name, fn := range map[string]func(*jsEmitter, goja.FunctionCall) goja.Value{
		`on`:                  func(w *jsEmitter, call goja.FunctionCall) goja.Value { return w.add(call, (*emitter.Emitter).On) },
		`addListener`:         func(w *jsEmitter, call goja.FunctionCall) goja.Value { return w.add(call, (*emitter.Emitter).AddListener) },
		`once`:                func(w *jsEmitter, call goja.FunctionCall) goja.Value { return w.add(call, (*emitter.Emitter).Once) },
		`prependListener`:     func(w *jsEmitter, call goja.FunctionCall) goja.Value { return w.add(call, (*emitter.Emitter).PrependListener) },
		`prependOnceListener`: func(w *jsEmitter, call goja.FunctionCall) goja.Value { return w.add(call, (*emitter.Emitter).PrependOnceListener) },
		`off`:                 (*jsEmitter).off,
		`removeListener`:      (*jsEmitter).off,
		`removeAllListeners`:  (*jsEmitter).removeAllListeners,
		`emit`:                (*jsEmitter).emit,
		`eventNames`:          (*jsEmitter).eventNames,
		`listenerCount`:       (*jsEmitter).listenerCount,
		`listeners`:           (*jsEmitter).listeners,
		`setMaxListeners`:     (*jsEmitter).setMaxListeners,
		`getMaxListeners`:     (*jsEmitter).getMaxListeners,
	} {
		_ = proto.Set(name, func(call goja.FunctionCall) goja.Value {
			return fn(m.thisEmitter(call), call)
		})
	}
}

func (m *Module) constructEmitter(call goja.ConstructorCall) *goja.Object {
	obj := call.This
	initInstance(obj, m.eventEmitterProto)
	w := &jsEmitter{module: m, object: obj}
	w.emitter = emitter.New(
		emitter.WithLogger(m.logger),
		emitter.WithErrorHandler(w.listenerFailed),
		emitter.WithStopOnError(),
	)
	m.setInternal(obj, w)
	return obj
}

func (m *Module) thisEmitter(call goja.FunctionCall) *jsEmitter {
	w, ok := internalOf(call.This).(*jsEmitter)
	if !ok {
		panic(m.illegalInvocation())
	}
	return w
}

func (w *jsEmitter) listenerFailed(eventType string, err error) {
	if w.depth != 0 {
		if w.thrown == nil {
			w.thrown = w.module.thrown(err)
		}
		return
	}
	// emitted from Go, e.g. newListener during on()
	if w.module.onError != nil {
		w.module.onError(err)
		return
	}
	w.module.logger.Err().
		Str(`type`, eventType).
		Err(err).
		Log(`event emitter listener failed`)
}

func (w *jsEmitter) add(call goja.FunctionCall, add func(*emitter.Emitter, string, *emitter.Listener) bool) goja.Value {
	eventType := call.Argument(0).String()
	value := call.Argument(1)
	fn, ok := goja.AssertFunction(value)
	if !ok {
		panic(w.module.runtime.NewTypeError(`The "listener" argument must be of type function`))
	}
	add(w.emitter, eventType, emitter.Wrap(value, func(args ...any) error {
		_, err := fn(w.object, w.args(args)...)
		return err
	}))
	return w.object
}

// off removes the most recently added registration of the function.
func (w *jsEmitter) off(call goja.FunctionCall) goja.Value {
	eventType := call.Argument(0).String()
	value := call.Argument(1)
	listeners := w.emitter.Listeners(eventType)
	for i := len(listeners) - 1; i >= 0; i-- {
		if origin, ok := listeners[i].Origin().(goja.Value); ok && origin.SameAs(value) {
			w.emitter.Off(eventType, listeners[i])
			break
		}
	}
	return w.object
}

func (w *jsEmitter) removeAllListeners(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) == 0 || goja.IsUndefined(call.Argument(0)) {
		w.emitter.RemoveAllListeners()
	} else {
		w.emitter.RemoveAllListeners(call.Argument(0).String())
	}
	return w.object
}

func (w *jsEmitter) emit(call goja.FunctionCall) goja.Value {
	eventType := call.Argument(0).String()
	var args []any
	if len(call.Arguments) > 1 {
		args = make([]any, len(call.Arguments)-1)
		for i, v := range call.Arguments[1:] {
			args[i] = v
		}
	}

	outer := w.thrown
	w.thrown = nil
	w.depth++
	ok, err := w.emitter.Emit(eventType, args...)
	thrown := w.thrown
	w.thrown = outer
	w.depth--

	if thrown != nil {
		panic(thrown)
	}

	var unhandled *emitter.UnhandledError
	if errors.As(err, &unhandled) {
		if v, ok := unhandled.Value.(goja.Value); ok && !isNullish(v) {
			if _, ok := v.(*goja.Object); ok {
				panic(v)
			}
			panic(w.module.newError(`Error`, ``, `Unhandled error. (`+v.String()+`)`))
		}
		panic(w.module.newError(`Error`, ``, `Unhandled error.`))
	}

	return w.module.runtime.ToValue(ok)
}

func (w *jsEmitter) eventNames(goja.FunctionCall) goja.Value {
	names := w.emitter.EventNames()
	items := make([]any, len(names))
	for i, name := range names {
		items[i] = name
	}
	return w.module.runtime.NewArray(items...)
}

func (w *jsEmitter) listenerCount(call goja.FunctionCall) goja.Value {
	return w.module.runtime.ToValue(w.emitter.ListenerCount(call.Argument(0).String()))
}

func (w *jsEmitter) listeners(call goja.FunctionCall) goja.Value {
	listeners := w.emitter.Listeners(call.Argument(0).String())
	items := make([]any, 0, len(listeners))
	for _, l := range listeners {
		if origin, ok := l.Origin().(goja.Value); ok {
			items = append(items, origin)
		}
	}
	return w.module.runtime.NewArray(items...)
}

func (w *jsEmitter) setMaxListeners(call goja.FunctionCall) goja.Value {
	if err := w.emitter.SetMaxListeners(int(call.Argument(0).ToInteger())); err != nil {
		panic(w.module.newError(`RangeError`, ``, err.Error()))
	}
	return w.object
}

func (w *jsEmitter) getMaxListeners(goja.FunctionCall) goja.Value {
	return w.module.runtime.ToValue(w.emitter.MaxListeners())
}

// args converts emitted values for a script listener, mapping the
// listeners passed with newListener and removeListener back to functions.
func (w *jsEmitter) args(args []any) []goja.Value {
	values := make([]goja.Value, len(args))
	for i, arg := range args {
		if l, ok := arg.(*emitter.Listener); ok {
			if origin, ok := l.Origin().(goja.Value); ok {
				values[i] = origin
				continue
			}
		}
		values[i] = w.module.toJS(arg)
	}
	return values
}
