package gojaevents

import (
	"github.com/dop251/goja"
	"github.com/joeycumines/go-eventtarget"
)

var phaseConstants = [...]struct {
	name  string
	phase eventtarget.Phase
}{
	{`NONE`, eventtarget.PhaseNone},
	{`CAPTURING_PHASE`, eventtarget.PhaseCapturing},
	{`AT_TARGET`, eventtarget.PhaseAtTarget},
	{`BUBBLING_PHASE`, eventtarget.PhaseBubbling},
}

func (m *Module) setupEvent() {
	m.eventCtor, m.eventProto = m.defineClass(`Event`, func(call goja.ConstructorCall) *goja.Object {
		return m.constructEvent(call, m.eventProto, false)
	}, nil)
	m.customEventCtor, m.customEventProto = m.defineClass(`CustomEvent`, func(call goja.ConstructorCall) *goja.Object {
		return m.constructEvent(call, m.customEventProto, true)
	}, m.eventProto)

	for _, c := range phaseConstants {
		v := m.runtime.ToValue(int(c.phase))
		_ = m.eventCtor.DefineDataProperty(c.name, v, goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_TRUE)
		_ = m.eventProto.DefineDataProperty(c.name, v, goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_TRUE)
	}

	proto := m.eventProto
	m.getter(proto, `type`, func(call goja.FunctionCall) goja.Value {
		return m.runtime.ToValue(m.thisEvent(call).Type())
	})
	m.getter(proto, `target`, func(call goja.FunctionCall) goja.Value {
		return m.WrapTarget(m.thisEvent(call).Target())
	})
	m.getter(proto, `currentTarget`, func(call goja.FunctionCall) goja.Value {
		return m.WrapTarget(m.thisEvent(call).CurrentTarget())
	})
	m.getter(proto, `eventPhase`, func(call goja.FunctionCall) goja.Value {
		return m.runtime.ToValue(int(m.thisEvent(call).EventPhase()))
	})
	m.getter(proto, `bubbles`, func(call goja.FunctionCall) goja.Value {
		return m.runtime.ToValue(m.thisEvent(call).Bubbles())
	})
	m.getter(proto, `cancelable`, func(call goja.FunctionCall) goja.Value {
		return m.runtime.ToValue(m.thisEvent(call).Cancelable())
	})
	m.getter(proto, `composed`, func(call goja.FunctionCall) goja.Value {
		return m.runtime.ToValue(m.thisEvent(call).Composed())
	})
	m.getter(proto, `defaultPrevented`, func(call goja.FunctionCall) goja.Value {
		return m.runtime.ToValue(m.thisEvent(call).DefaultPrevented())
	})
	m.getter(proto, `returnValue`, func(call goja.FunctionCall) goja.Value {
		return m.runtime.ToValue(m.thisEvent(call).ReturnValue())
	})
	m.getter(proto, `cancelBubble`, func(call goja.FunctionCall) goja.Value {
		return m.runtime.ToValue(m.thisEvent(call).CancelBubble())
	})
	m.getter(proto, `isTrusted`, func(call goja.FunctionCall) goja.Value {
		return m.runtime.ToValue(m.thisEvent(call).IsTrusted())
	})
	// milliseconds since the epoch
	m.getter(proto, `timeStamp`, func(call goja.FunctionCall) goja.Value {
		return m.runtime.ToValue(float64(m.thisEvent(call).TimeStamp().UnixNano()) / 1e6)
	})

	_ = proto.Set(`preventDefault`, func(call goja.FunctionCall) goja.Value {
		m.thisEvent(call).PreventDefault()
		return goja.Undefined()
	})
	_ = proto.Set(`stopPropagation`, func(call goja.FunctionCall) goja.Value {
		m.thisEvent(call).StopPropagation()
		return goja.Undefined()
	})
	_ = proto.Set(`stopImmediatePropagation`, func(call goja.FunctionCall) goja.Value {
		m.thisEvent(call).StopImmediatePropagation()
		return goja.Undefined()
	})
	_ = proto.Set(`composedPath`, func(call goja.FunctionCall) goja.Value {
		path := m.thisEvent(call).ComposedPath()
		items := make([]any, len(path))
		for i, target := range path {
			items[i] = m.WrapTarget(target)
		}
		return m.runtime.NewArray(items...)
	})

	m.getter(m.customEventProto, `detail`, func(call goja.FunctionCall) goja.Value {
		return m.toJS(m.thisEvent(call).Detail())
	})
}

func (m *Module) constructEvent(call goja.ConstructorCall, proto *goja.Object, custom bool) *goja.Object {
	if len(call.Arguments) == 0 {
		panic(m.runtime.NewTypeError(`The "type" argument must be specified`))
	}
	eventType := call.Argument(0).String()

	var (
		init   eventtarget.EventInit
		detail goja.Value = goja.Null()
	)
	if options, ok := call.Argument(1).(*goja.Object); ok {
		init.Bubbles = boolProp(options, `bubbles`)
		init.Cancelable = boolProp(options, `cancelable`)
		init.Composed = boolProp(options, `composed`)
		if v := options.Get(`detail`); custom && !isNullish(v) {
			detail = v
		}
	}

	var event *eventtarget.Event
	if custom {
		event = eventtarget.NewCustomEvent(eventType, detail, init)
	} else {
		event = eventtarget.NewEvent(eventType, init)
	}

	obj := call.This
	initInstance(obj, proto)
	m.setInternal(obj, event)
	event.SetWrapper(obj)
	return obj
}

func (m *Module) thisEvent(call goja.FunctionCall) *eventtarget.Event {
	event, ok := internalOf(call.This).(*eventtarget.Event)
	if !ok {
		panic(m.illegalInvocation())
	}
	return event
}
