package eventtarget

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type changeRecord struct {
	eventType string
	change    ListenerChange
}

type changeRecorder struct {
	changes []changeRecord
	mu      sync.Mutex
}

func (x *changeRecorder) hook(target *EventTarget, eventType string, change ListenerChange) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.changes = append(x.changes, changeRecord{eventType, change})
}

func (x *changeRecorder) get() []changeRecord {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]changeRecord(nil), x.changes...)
}

func newBufferLogger(buf *bytes.Buffer, level logiface.Level) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(buf), stumpy.WithTimeField(``)),
		stumpy.L.WithLevel(level),
	).Logger()
}

func TestNewEventTarget_InvalidOptionPanics(t *testing.T) {
	assert.PanicsWithValue(t, `eventtarget: shadow root host must not be nil`, func() {
		NewEventTarget(WithShadowRoot(nil, ShadowRootOpen))
	})
	assert.Panics(t, func() { NewEventTarget(WithMaxListeners(-1)) })
	assert.Panics(t, func() {
		NewEventTarget(WithParent(NewEventTarget()), WithShadowRoot(NewEventTarget(), ShadowRootOpen))
	})
	assert.NotPanics(t, func() { NewEventTarget(nil) })
}

// ============================================================================
// Listener change hooks
// ============================================================================

func TestEventTarget_ListenerChangeHook_Scenario(t *testing.T) {
	var r changeRecorder
	target := NewEventTarget(WithListenerChangeHook(r.hook))
	l1 := nopListener()

	require.True(t, target.AddEventListener(`SIGINT`, l1, ListenerOptions{}))
	assert.Equal(t, []changeRecord{{`SIGINT`, ListenerAdded}}, r.get())

	require.True(t, target.RemoveEventListener(`SIGINT`, l1, false))
	assert.Equal(t, []changeRecord{{`SIGINT`, ListenerAdded}, {`SIGINT`, ListenerRemoved}}, r.get())
}

func TestEventTarget_ListenerChangeHook_NoChangeNoCall(t *testing.T) {
	var r changeRecorder
	target := NewEventTarget(WithListenerChangeHook(r.hook))
	l1 := nopListener()

	target.AddEventListener(`x`, l1, ListenerOptions{})
	target.AddEventListener(`x`, l1, ListenerOptions{})
	target.RemoveEventListener(`y`, l1, false)
	target.RemoveAllEventListeners(`y`)

	assert.Len(t, r.get(), 1)
}

func TestEventTarget_ListenerChangeHook_CountVisible(t *testing.T) {
	var counts []int
	target := NewEventTarget(WithListenerChangeHook(func(target *EventTarget, eventType string, change ListenerChange) {
		counts = append(counts, target.ListenerCount(eventType))
	}))
	a, b := nopListener(), nopListener()
	target.AddEventListener(`x`, a, ListenerOptions{})
	target.AddEventListener(`x`, b, ListenerOptions{})
	target.RemoveEventListener(`x`, a, false)
	target.RemoveEventListener(`x`, b, false)

	assert.Equal(t, []int{1, 2, 1, 0}, counts)
}

func TestEventTarget_ListenerChangeHook_Once(t *testing.T) {
	var r changeRecorder
	target := NewEventTarget(WithListenerChangeHook(r.hook))
	target.AddEventListener(`x`, nopListener(), ListenerOptions{Once: true})

	target.DispatchEvent(NewEvent(`x`, EventInit{}))

	assert.Equal(t, []changeRecord{{`x`, ListenerAdded}, {`x`, ListenerRemoved}}, r.get())
}

func TestEventTarget_ListenerChangeHook_Cleared(t *testing.T) {
	var r changeRecorder
	var r2 changeRecorder
	target := NewEventTarget(WithListenerChangeHook(r.hook), WithListenerChangeHook(nil), WithListenerChangeHook(r2.hook))
	target.AddEventListener(`a`, nopListener(), ListenerOptions{})
	target.AddEventListener(`a`, nopListener(), ListenerOptions{})
	target.AddEventListener(`b`, nopListener(), ListenerOptions{})

	require.True(t, target.RemoveAllEventListeners(`a`))
	target.RemoveAllListeners()

	want := []changeRecord{
		{`a`, ListenerAdded},
		{`a`, ListenerAdded},
		{`b`, ListenerAdded},
		{`a`, ListenerCleared},
		{`b`, ListenerCleared},
	}
	assert.Equal(t, want, r.get())
	assert.Equal(t, want, r2.get())
	assert.Empty(t, target.EventTypes())
}

func TestListenerChange_String(t *testing.T) {
	assert.Equal(t, `added`, ListenerAdded.String())
	assert.Equal(t, `removed`, ListenerRemoved.String())
	assert.Equal(t, `cleared`, ListenerCleared.String())
	assert.Equal(t, `unknown`, ListenerChange(200).String())
}

// ============================================================================
// Attribute handlers
// ============================================================================

func TestEventTarget_SetAttributeEventListener(t *testing.T) {
	target := NewEventTarget()
	var r recorder
	first := r.listener(`first`)
	onclick1 := r.listener(`onclick1`)
	onclick2 := r.listener(`onclick2`)
	last := r.listener(`last`)

	target.AddEventListener(`click`, first, ListenerOptions{})
	require.True(t, target.SetAttributeEventListener(`click`, onclick1))
	target.AddEventListener(`click`, last, ListenerOptions{})
	assert.Same(t, onclick1, target.AttributeEventListener(`click`))

	// replacing keeps the position
	require.True(t, target.SetAttributeEventListener(`click`, onclick2))
	assert.Same(t, onclick2, target.AttributeEventListener(`click`))
	assert.Equal(t, 3, target.ListenerCount(`click`))

	target.DispatchEvent(NewEvent(`click`, EventInit{}))
	r.expect(t, `first`, `onclick2`, `last`)

	require.True(t, target.SetAttributeEventListener(`click`, nil))
	assert.Nil(t, target.AttributeEventListener(`click`))
	assert.Equal(t, 2, target.ListenerCount(`click`))
}

func TestEventTarget_AttributeEventListener_RemovedExternally(t *testing.T) {
	target := NewEventTarget()
	handler := nopListener()
	require.True(t, target.SetAttributeEventListener(`x`, handler))
	require.True(t, target.RemoveEventListener(`x`, handler, false))
	assert.Nil(t, target.AttributeEventListener(`x`))

	// setting again re-adds at the end
	other := nopListener()
	target.AddEventListener(`x`, other, ListenerOptions{})
	require.True(t, target.SetAttributeEventListener(`x`, handler))
	assert.Equal(t, []Listener{other, handler}, target.GetListeners(`x`))
}

func TestEventTarget_SetAttributeEventListener_HookReentry(t *testing.T) {
	var seen []Listener
	target := NewEventTarget(WithListenerChangeHook(func(x *EventTarget, eventType string, change ListenerChange) {
		_ = x.Wrapper()
		seen = append(seen, x.AttributeEventListener(eventType))
	}))
	target.SetWrapper(`wrapper`)
	handler := nopListener()

	done := make(chan struct{})
	go func() {
		defer close(done)
		target.SetAttributeEventListener(`click`, handler)
		target.SetAttributeEventListener(`click`, nil)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal(`hook blocked inside SetAttributeEventListener`)
	}

	assert.Equal(t, []Listener{handler, nil}, seen)
	assert.Equal(t, `wrapper`, target.Wrapper())
}

func TestEventTarget_SetAttributeEventListener_RejectedKeepsPrevious(t *testing.T) {
	target := NewEventTarget()
	handler, other := nopListener(), nopListener()
	require.True(t, target.SetAttributeEventListener(`x`, handler))
	target.AddEventListener(`x`, other, ListenerOptions{})

	// other is already registered, so it cannot become the handler
	assert.False(t, target.SetAttributeEventListener(`x`, other))
	assert.Same(t, handler, target.AttributeEventListener(`x`))
}

// ============================================================================
// Reporting
// ============================================================================

func TestEventTarget_Reporting(t *testing.T) {
	target := NewEventTarget()
	assert.False(t, target.HasEventListeners(`x`))
	assert.Nil(t, target.GetListeners(`x`))

	a, b := nopListener(), nopListener()
	target.AddEventListener(`x`, a, ListenerOptions{Passive: true})
	assert.True(t, target.HasEventListeners(`x`))
	assert.False(t, target.HasActiveEventListeners(`x`))

	target.AddEventListener(`x`, b, ListenerOptions{Capture: true})
	assert.True(t, target.HasActiveEventListeners(`x`))
	assert.Equal(t, []Listener{a, b}, target.GetListeners(`x`))
	assert.Equal(t, []string{`x`}, target.EventTypes())
	assert.Equal(t, 2, target.Listeners().Len(`x`))
}

func TestEventTarget_MaxListeners(t *testing.T) {
	target := NewEventTarget(WithMaxListeners(2))
	assert.Equal(t, 2, target.MaxListeners())
	assert.Equal(t, DefaultMaxListeners, NewEventTarget().MaxListeners())

	for range 3 {
		target.AddEventListener(`x`, nopListener(), ListenerOptions{})
	}
	assert.Equal(t, 3, target.ListenerCount(`x`), `not enforced`)
	assert.True(t, target.ExceedsMaxListeners(`x`))

	require.NoError(t, target.SetMaxListeners(0))
	assert.False(t, target.ExceedsMaxListeners(`x`), `unlimited`)

	var rangeErr *RangeError
	require.ErrorAs(t, target.SetMaxListeners(-1), &rangeErr)
	assert.Equal(t, 0, target.MaxListeners())
}

// ============================================================================
// Dispatch state
// ============================================================================

func TestEventTarget_Dispatch_Errors(t *testing.T) {
	target := NewEventTarget()

	ok, err := target.Dispatch(nil)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNilEvent)
	assert.False(t, target.DispatchEvent(nil))

	event := NewEvent(`x`, EventInit{})
	var nestedErr error
	target.AddEventListener(`x`, ListenerFunc(func(e *Event) error {
		assert.True(t, e.IsBeingDispatched())
		_, nestedErr = NewEventTarget().Dispatch(e)
		return nil
	}), ListenerOptions{})

	ok, err = target.Dispatch(event)
	assert.True(t, ok)
	assert.NoError(t, err)
	assert.ErrorIs(t, nestedErr, ErrEventInFlight)
	assert.False(t, event.IsBeingDispatched())

	// events may be re-dispatched once complete
	ok, err = target.Dispatch(event)
	assert.True(t, ok)
	assert.NoError(t, err)
}

func TestEventTarget_Dispatch_StateAfter(t *testing.T) {
	target := NewEventTarget()
	target.AddEventListener(`x`, ListenerFunc(func(e *Event) error {
		assert.Same(t, target, e.CurrentTarget())
		assert.Equal(t, PhaseAtTarget, e.EventPhase())
		assert.Equal(t, []*EventTarget{target}, e.ComposedPath())
		e.StopPropagation()
		return nil
	}), ListenerOptions{})

	event := NewEvent(`x`, EventInit{})
	target.DispatchEvent(event)

	assert.Same(t, target, event.Target())
	assert.Nil(t, event.CurrentTarget())
	assert.Equal(t, PhaseNone, event.EventPhase())
	assert.False(t, event.PropagationStopped())
	assert.Nil(t, event.ComposedPath())
}

// ============================================================================
// Error isolation
// ============================================================================

func TestEventTarget_ErrorHandler(t *testing.T) {
	var errs []error
	target := NewEventTarget(WithErrorHandler(func(event *Event, err error) {
		assert.Equal(t, `x`, event.Type())
		errs = append(errs, err)
	}))
	var r recorder
	target.AddEventListener(`x`, ListenerFunc(func(*Event) error { return io.EOF }), ListenerOptions{})
	target.AddEventListener(`x`, ListenerFunc(func(*Event) error { panic(io.ErrUnexpectedEOF) }), ListenerOptions{})
	target.AddEventListener(`x`, ListenerFunc(func(*Event) error { panic(`boom`) }), ListenerOptions{})
	target.AddEventListener(`x`, r.listener(`after`), ListenerOptions{})

	assert.True(t, target.DispatchEvent(NewEvent(`x`, EventInit{})))

	r.expect(t, `after`)
	require.Len(t, errs, 3)

	var listenerErr *ListenerError
	require.ErrorAs(t, errs[0], &listenerErr)
	assert.Equal(t, `x`, listenerErr.Type)
	assert.ErrorIs(t, errs[0], io.EOF)

	var panicErr *PanicError
	require.ErrorAs(t, errs[1], &panicErr)
	assert.ErrorIs(t, errs[1], io.ErrUnexpectedEOF)
	assert.NotEmpty(t, panicErr.Stack)

	require.ErrorAs(t, errs[2], &panicErr)
	assert.Equal(t, `boom`, panicErr.Value)
	assert.NoError(t, errors.Unwrap(errs[2]))
	assert.Contains(t, errs[2].Error(), `panicked: boom`)
}

func TestEventTarget_DefaultErrorLogging(t *testing.T) {
	var buf bytes.Buffer
	target := NewEventTarget(WithLogger(newBufferLogger(&buf, logiface.LevelInformational)))
	target.AddEventListener(`default-error-logging`, ListenerFunc(func(*Event) error {
		return errors.New(`listener failed`)
	}), ListenerOptions{})

	target.DispatchEvent(NewEvent(`default-error-logging`, EventInit{}))

	out := buf.String()
	assert.Contains(t, out, `"lvl":"err"`)
	assert.Contains(t, out, `"type":"default-error-logging"`)
	assert.Contains(t, out, `"phase":"at-target"`)
	assert.Contains(t, out, `listener failed`)
	assert.Contains(t, out, `"msg":"uncaught exception in event handler"`)
	assert.NotContains(t, out, `listener added`, `debug disabled`)
}

func TestEventTarget_DebugLogging(t *testing.T) {
	var buf bytes.Buffer
	target := NewEventTarget(WithLogger(newBufferLogger(&buf, logiface.LevelDebug)))
	l := nopListener()
	target.AddEventListener(`x`, l, ListenerOptions{Once: true})
	target.RemoveEventListener(`x`, l, false)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"msg":"listener added"`)
	assert.Contains(t, lines[1], `"msg":"listener removed"`)
}

func TestSetStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	SetStructuredLogger(newBufferLogger(&buf, logiface.LevelDebug))
	t.Cleanup(func() { SetStructuredLogger(nil) })

	NewEventTarget().AddEventListener(`global-logger`, nopListener(), ListenerOptions{})

	assert.Contains(t, buf.String(), `"type":"global-logger"`)

	// the target's own logger takes precedence
	var own bytes.Buffer
	NewEventTarget(WithLogger(newBufferLogger(&own, logiface.LevelDebug))).
		AddEventListener(`own-logger`, nopListener(), ListenerOptions{})
	assert.NotContains(t, buf.String(), `own-logger`)
	assert.Contains(t, own.String(), `own-logger`)
}

func TestEventTarget_NoLogger(t *testing.T) {
	target := NewEventTarget()
	target.AddEventListener(`x`, ListenerFunc(func(*Event) error { return io.EOF }), ListenerOptions{})
	assert.NotPanics(t, func() { target.DispatchEvent(NewEvent(`x`, EventInit{})) })
}

// ============================================================================
// Concurrency
// ============================================================================

func TestEventTarget_ConcurrentDispatch_OnceExactlyOnce(t *testing.T) {
	target := NewEventTarget()
	var (
		mu    sync.Mutex
		calls int
	)
	target.AddEventListener(`x`, ListenerFunc(func(*Event) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	}), ListenerOptions{Once: true})

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			target.DispatchEvent(NewEvent(`x`, EventInit{}))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, calls)
}
