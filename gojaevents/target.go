package gojaevents

import (
	"errors"

	"github.com/dop251/goja"
	"github.com/joeycumines/go-eventtarget"
)

// jsListener is a function or handleEvent object registered from script.
type jsListener struct {
	module *Module
	value  goja.Value
}

var errNoHandleEvent = errors.New(`gojaevents: listener object has no handleEvent method`)

func (x *jsListener) HandleEvent(event *eventtarget.Event) error {
	this := x.module.WrapTarget(event.CurrentTarget())
	fn, ok := goja.AssertFunction(x.value)
	if !ok {
		obj, _ := x.value.(*goja.Object)
		if obj == nil {
			return errNoHandleEvent
		}
		if fn, ok = goja.AssertFunction(obj.Get(`handleEvent`)); !ok {
			return errNoHandleEvent
		}
		this = obj
	}
	_, err := fn(this, x.module.WrapEvent(event))
	return err
}

// Equal matches the same function or object.
func (x *jsListener) Equal(other eventtarget.Listener) bool {
	o, ok := other.(*jsListener)
	return ok && x.value.SameAs(o.value)
}

func (m *Module) setupEventTarget() {
	m.eventTargetCtor, m.eventTargetProto = m.defineClass(`EventTarget`, m.constructEventTarget, nil)
	proto := m.eventTargetProto
	_ = proto.Set(`addEventListener`, m.addEventListener)
	_ = proto.Set(`removeEventListener`, m.removeEventListener)
	_ = proto.Set(`dispatchEvent`, m.dispatchEvent)
}

func (m *Module) constructEventTarget(call goja.ConstructorCall) *goja.Object {
	obj := call.This
	initInstance(obj, m.eventTargetProto)
	target := m.NewEventTarget()
	m.setInternal(obj, target)
	target.SetWrapper(obj)
	return obj
}

func (m *Module) thisTarget(call goja.FunctionCall) *eventtarget.EventTarget {
	switch v := internalOf(call.This).(type) {
	case *eventtarget.EventTarget:
		return v
	case *eventtarget.AbortSignal:
		return v.EventTarget
	default:
		panic(m.illegalInvocation())
	}
}

func (m *Module) listenerArg(v goja.Value) *jsListener {
	if isNullish(v) {
		return nil
	}
	if _, ok := v.(*goja.Object); !ok {
		panic(m.runtime.NewTypeError(`The "listener" argument must be an object`))
	}
	return &jsListener{module: m, value: v}
}

// listenerOptions converts the options argument, a boolean (capture) or
// an AddEventListenerOptions dictionary.
func (m *Module) listenerOptions(v goja.Value) eventtarget.ListenerOptions {
	if isNullish(v) {
		return eventtarget.ListenerOptions{}
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return eventtarget.ListenerOptions{Capture: v.ToBoolean()}
	}
	options := eventtarget.ListenerOptions{
		Capture: boolProp(obj, `capture`),
		Once:    boolProp(obj, `once`),
		Passive: boolProp(obj, `passive`),
	}
	if signal := obj.Get(`signal`); signal != nil && !goja.IsUndefined(signal) {
		s, ok := internalOf(signal).(*eventtarget.AbortSignal)
		if !ok {
			panic(m.runtime.NewTypeError(`The "signal" option must be an AbortSignal`))
		}
		options.Signal = s
	}
	return options
}

func (m *Module) addEventListener(call goja.FunctionCall) goja.Value {
	target := m.thisTarget(call)
	eventType := call.Argument(0).String()
	listener := m.listenerArg(call.Argument(1))
	options := m.listenerOptions(call.Argument(2))
	if listener != nil {
		target.AddEventListener(eventType, listener, options)
	}
	return goja.Undefined()
}

func (m *Module) removeEventListener(call goja.FunctionCall) goja.Value {
	target := m.thisTarget(call)
	eventType := call.Argument(0).String()
	listener := m.listenerArg(call.Argument(1))
	options := m.listenerOptions(call.Argument(2))
	if listener != nil {
		target.RemoveEventListener(eventType, listener, options.Capture)
	}
	return goja.Undefined()
}

func (m *Module) dispatchEvent(call goja.FunctionCall) goja.Value {
	target := m.thisTarget(call)
	event, ok := internalOf(call.Argument(0)).(*eventtarget.Event)
	if !ok {
		panic(m.runtime.NewTypeError(`The "event" argument must be an instance of Event`))
	}
	ok, err := target.Dispatch(event)
	if err != nil {
		panic(m.newError(`Error`, `InvalidStateError`, err.Error()))
	}
	return m.runtime.ToValue(ok)
}

// attributeHandler implements an on<type> property, e.g. onabort.
func (m *Module) attributeHandler(proto *goja.Object, eventType string) {
	m.accessor(proto, `on`+eventType,
		func(call goja.FunctionCall) goja.Value {
			if l, ok := m.thisTarget(call).AttributeEventListener(eventType).(*jsListener); ok {
				return l.value
			}
			return goja.Null()
		},
		func(call goja.FunctionCall) goja.Value {
			target := m.thisTarget(call)
			if _, ok := goja.AssertFunction(call.Argument(0)); ok {
				target.SetAttributeEventListener(eventType, &jsListener{module: m, value: call.Argument(0)})
			} else {
				target.SetAttributeEventListener(eventType, nil)
			}
			return goja.Undefined()
		},
	)
}
