package gojaevents

import (
	"strconv"
	"time"

	"github.com/dop251/goja"
	"github.com/joeycumines/go-eventtarget"
)

func (m *Module) setupAbort() {
	m.abortControllerCtor, m.abortControllerProto = m.defineClass(`AbortController`, func(call goja.ConstructorCall) *goja.Object {
		obj := call.This
		initInstance(obj, m.abortControllerProto)
		m.setInternal(obj, eventtarget.NewAbortController())
		return obj
	}, nil)

	m.getter(m.abortControllerProto, `signal`, func(call goja.FunctionCall) goja.Value {
		return m.wrapSignal(m.thisController(call).Signal())
	})
	_ = m.abortControllerProto.Set(`abort`, func(call goja.FunctionCall) goja.Value {
		m.thisController(call).Abort(m.abortReason(call.Argument(0)))
		return goja.Undefined()
	})

	m.abortSignalCtor, m.abortSignalProto = m.defineClass(`AbortSignal`, func(goja.ConstructorCall) *goja.Object {
		panic(m.runtime.NewTypeError(`Illegal constructor`))
	}, m.eventTargetProto)

	proto := m.abortSignalProto
	m.getter(proto, `aborted`, func(call goja.FunctionCall) goja.Value {
		return m.runtime.ToValue(m.thisSignal(call).Aborted())
	})
	m.getter(proto, `reason`, func(call goja.FunctionCall) goja.Value {
		signal := m.thisSignal(call)
		if !signal.Aborted() {
			return goja.Undefined()
		}
		return m.toJS(signal.Reason())
	})
	_ = proto.Set(`throwIfAborted`, func(call goja.FunctionCall) goja.Value {
		signal := m.thisSignal(call)
		if signal.Aborted() {
			panic(m.toJS(signal.Reason()))
		}
		return goja.Undefined()
	})
	m.attributeHandler(proto, `abort`)

	ctor := m.abortSignalCtor
	_ = ctor.Set(`abort`, func(call goja.FunctionCall) goja.Value {
		return m.wrapSignal(eventtarget.AbortSignalAbort(m.abortReason(call.Argument(0))))
	})
	_ = ctor.Set(`timeout`, func(call goja.FunctionCall) goja.Value {
		if m.scheduler == nil {
			panic(m.runtime.NewTypeError(`AbortSignal.timeout requires a scheduler`))
		}
		ms := call.Argument(0).ToInteger()
		if ms < 0 {
			panic(m.newError(`RangeError`, ``, `The "delay" argument must be non-negative`))
		}
		return m.wrapSignal(eventtarget.AbortSignalTimeout(time.Duration(ms)*time.Millisecond, m.scheduler))
	})
	_ = ctor.Set(`any`, func(call goja.FunctionCall) goja.Value {
		return m.wrapSignal(eventtarget.AbortSignalAny(m.signalsArg(call.Argument(0))...))
	})
}

func (m *Module) thisController(call goja.FunctionCall) *eventtarget.AbortController {
	c, ok := internalOf(call.This).(*eventtarget.AbortController)
	if !ok {
		panic(m.illegalInvocation())
	}
	return c
}

func (m *Module) thisSignal(call goja.FunctionCall) *eventtarget.AbortSignal {
	s, ok := internalOf(call.This).(*eventtarget.AbortSignal)
	if !ok {
		panic(m.illegalInvocation())
	}
	return s
}

func (m *Module) wrapSignal(signal *eventtarget.AbortSignal) *goja.Object {
	if obj, ok := signal.Wrapper().(*goja.Object); ok {
		return obj
	}
	obj := m.runtime.NewObject()
	_ = obj.SetPrototype(m.abortSignalProto)
	m.setInternal(obj, signal)
	signal.SetWrapper(obj)
	return obj
}

// abortReason defaults an undefined reason to an AbortError, so that the
// same object is observed on every read of signal.reason.
func (m *Module) abortReason(v goja.Value) goja.Value {
	if v == nil || goja.IsUndefined(v) {
		return m.newError(`Error`, `AbortError`, `This operation was aborted`)
	}
	return v
}

func (m *Module) signalsArg(v goja.Value) []*eventtarget.AbortSignal {
	obj, ok := v.(*goja.Object)
	if !ok {
		panic(m.runtime.NewTypeError(`The "signals" argument must be an array`))
	}
	length := obj.Get(`length`)
	if length == nil {
		panic(m.runtime.NewTypeError(`The "signals" argument must be an array`))
	}
	n := length.ToInteger()
	signals := make([]*eventtarget.AbortSignal, 0, n)
	for i := range n {
		s, ok := internalOf(obj.Get(strconv.FormatInt(i, 10))).(*eventtarget.AbortSignal)
		if !ok {
			panic(m.runtime.NewTypeError(`The "signals" argument must contain only AbortSignal instances`))
		}
		signals = append(signals, s)
	}
	return signals
}
