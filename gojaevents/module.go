package gojaevents

import (
	"errors"

	"github.com/dop251/goja"
	"github.com/joeycumines/go-eventtarget"
	"github.com/joeycumines/logiface"
)

// internalKey is the non-enumerable property holding the Go value behind a
// JavaScript object.
const internalKey = `__gojaevents`

// Module provides event APIs for a [goja.Runtime]. Each Module is bound to
// a single runtime, and like the runtime it is not safe for concurrent use:
// events must be dispatched on the goroutine that owns the runtime.
type Module struct {
	runtime   *goja.Runtime
	logger    *logiface.Logger[logiface.Event]
	onError   ErrorHandler
	scheduler eventtarget.Scheduler

	eventTargetCtor      *goja.Object
	eventTargetProto     *goja.Object
	eventCtor            *goja.Object
	eventProto           *goja.Object
	customEventCtor      *goja.Object
	customEventProto     *goja.Object
	abortControllerCtor  *goja.Object
	abortControllerProto *goja.Object
	abortSignalCtor      *goja.Object
	abortSignalProto     *goja.Object
	eventEmitterCtor     *goja.Object
	eventEmitterProto    *goja.Object
}

// New creates a new [Module] bound to the given [goja.Runtime].
//
// New panics if runtime is nil. It returns an error if option validation
// fails.
func New(runtime *goja.Runtime, opts ...Option) (*Module, error) {
	if runtime == nil {
		panic("gojaevents: runtime must not be nil")
	}

	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	m := &Module{
		runtime:   runtime,
		logger:    cfg.logger,
		onError:   cfg.onError,
		scheduler: cfg.scheduler,
	}

	m.setupEventTarget()
	m.setupEvent()
	m.setupAbort()
	m.setupEmitter()

	return m, nil
}

// Runtime returns the [goja.Runtime] this module is bound to.
func (m *Module) Runtime() *goja.Runtime {
	return m.runtime
}

// Install defines the EventTarget, Event, CustomEvent, AbortController,
// AbortSignal and EventEmitter constructors on obj, or on the global object
// if obj is nil.
func (m *Module) Install(obj *goja.Object) error {
	if obj == nil {
		obj = m.runtime.GlobalObject()
	}
	for _, v := range [...]struct {
		ctor *goja.Object
		name string
	}{
		{m.eventTargetCtor, `EventTarget`},
		{m.eventCtor, `Event`},
		{m.customEventCtor, `CustomEvent`},
		{m.abortControllerCtor, `AbortController`},
		{m.abortSignalCtor, `AbortSignal`},
		{m.eventEmitterCtor, `EventEmitter`},
	} {
		if err := obj.Set(v.name, v.ctor); err != nil {
			return err
		}
	}
	return nil
}

// WrapTarget returns the JavaScript object for target, creating it if
// necessary. Go code uses this to expose targets it owns to scripts.
func (m *Module) WrapTarget(target *eventtarget.EventTarget) goja.Value {
	if target == nil {
		return goja.Null()
	}
	if obj, ok := target.Wrapper().(*goja.Object); ok {
		return obj
	}
	obj := m.runtime.NewObject()
	_ = obj.SetPrototype(m.eventTargetProto)
	m.setInternal(obj, target)
	target.SetWrapper(obj)
	return obj
}

// WrapEvent returns the JavaScript object for event, creating it if
// necessary.
func (m *Module) WrapEvent(event *eventtarget.Event) *goja.Object {
	if obj, ok := event.Wrapper().(*goja.Object); ok {
		return obj
	}
	obj := m.runtime.NewObject()
	if event.Detail() != nil {
		_ = obj.SetPrototype(m.customEventProto)
	} else {
		_ = obj.SetPrototype(m.eventProto)
	}
	m.setInternal(obj, event)
	event.SetWrapper(obj)
	return obj
}

// NewEventTarget creates a target configured like those constructed by
// scripts.
func (m *Module) NewEventTarget(opts ...eventtarget.Option) *eventtarget.EventTarget {
	return eventtarget.NewEventTarget(append(m.targetOptions(), opts...)...)
}

func (m *Module) targetOptions() []eventtarget.Option {
	opts := []eventtarget.Option{eventtarget.WithLogger(m.logger)}
	if m.onError != nil {
		onError := m.onError
		opts = append(opts, eventtarget.WithErrorHandler(func(_ *eventtarget.Event, err error) {
			onError(err)
		}))
	}
	return opts
}

// defineClass wires ctor and proto together, inheriting from parent if it
// is non-nil.
func (m *Module) defineClass(name string, fn func(call goja.ConstructorCall) *goja.Object, parent *goja.Object) (ctor, proto *goja.Object) {
	ctor = m.runtime.ToValue(fn).ToObject(m.runtime)
	proto = m.runtime.NewObject()
	if parent != nil {
		_ = proto.SetPrototype(parent)
	}
	_ = ctor.Set(`prototype`, proto)
	_ = proto.DefineDataProperty(`constructor`, ctor, goja.FLAG_TRUE, goja.FLAG_TRUE, goja.FLAG_FALSE)
	_ = ctor.DefineDataProperty(`name`, m.runtime.ToValue(name), goja.FLAG_FALSE, goja.FLAG_TRUE, goja.FLAG_FALSE)
	return ctor, proto
}

// initInstance ensures obj (the this of a constructor call) inherits from
// proto, preserving any subclass prototype.
func initInstance(obj, proto *goja.Object) {
	for p := obj.Prototype(); p != nil; p = p.Prototype() {
		if p == proto {
			return
		}
	}
	_ = obj.SetPrototype(proto)
}

func (m *Module) getter(obj *goja.Object, name string, fn func(call goja.FunctionCall) goja.Value) {
	_ = obj.DefineAccessorProperty(name, m.runtime.ToValue(fn), goja.Undefined(), goja.FLAG_TRUE, goja.FLAG_TRUE)
}

func (m *Module) accessor(obj *goja.Object, name string, get, set func(call goja.FunctionCall) goja.Value) {
	_ = obj.DefineAccessorProperty(name, m.runtime.ToValue(get), m.runtime.ToValue(set), goja.FLAG_TRUE, goja.FLAG_TRUE)
}

func (m *Module) setInternal(obj *goja.Object, v any) {
	_ = obj.DefineDataProperty(internalKey, m.runtime.ToValue(v), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE)
}

func internalOf(v goja.Value) any {
	obj, ok := v.(*goja.Object)
	if !ok || obj == nil {
		return nil
	}
	iv := obj.Get(internalKey)
	if iv == nil {
		return nil
	}
	return iv.Export()
}

func (m *Module) illegalInvocation() *goja.Object {
	return m.runtime.NewTypeError(`Illegal invocation`)
}

// newError constructs an instance of the global error constructor ctor,
// e.g. "Error" or "RangeError", overriding its name if name is non-empty.
func (m *Module) newError(ctor, name, message string) *goja.Object {
	obj, err := m.runtime.New(m.runtime.Get(ctor), m.runtime.ToValue(message))
	if err != nil {
		return m.runtime.NewGoError(errors.New(message))
	}
	if name != `` {
		_ = obj.Set(`name`, name)
	}
	return obj
}

// toJS converts a Go value held by an event, signal or emitter back to
// JavaScript, leaving script values untouched.
func (m *Module) toJS(v any) goja.Value {
	switch v := v.(type) {
	case nil:
		return goja.Null()
	case goja.Value:
		return v
	case *eventtarget.AbortSignal:
		return m.wrapSignal(v)
	case *eventtarget.EventTarget:
		return m.WrapTarget(v)
	case *eventtarget.Event:
		return m.WrapEvent(v)
	case *eventtarget.TimeoutError:
		return m.newError(`Error`, `TimeoutError`, `signal timed out`)
	case *eventtarget.AbortError:
		return m.newError(`Error`, `AbortError`, v.Error())
	case error:
		return m.runtime.NewGoError(v)
	default:
		return m.runtime.ToValue(v)
	}
}

// thrown extracts the value a listener threw.
func (m *Module) thrown(err error) goja.Value {
	var exception *goja.Exception
	if errors.As(err, &exception) {
		return exception.Value()
	}
	return m.runtime.NewGoError(err)
}

func boolProp(obj *goja.Object, name string) bool {
	v := obj.Get(name)
	return v != nil && v.ToBoolean()
}

func isNullish(v goja.Value) bool {
	return v == nil || goja.IsUndefined(v) || goja.IsNull(v)
}
