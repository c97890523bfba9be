package emitter

import (
	"bytes"
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeycumines/go-eventtarget"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type callLog struct {
	calls [][]any
	mu    sync.Mutex
}

func (x *callLog) listener(name string) *Listener {
	return Func(func(args ...any) error {
		x.mu.Lock()
		defer x.mu.Unlock()
		x.calls = append(x.calls, append([]any{name}, args...))
		return nil
	})
}

func (x *callLog) get() [][]any {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([][]any(nil), x.calls...)
}

func TestEmitter_On_Emit(t *testing.T) {
	e := New()
	var log callLog
	a, b := log.listener(`a`), log.listener(`b`)

	require.True(t, e.On(`data`, a))
	require.True(t, e.AddListener(`data`, b))
	assert.False(t, e.On(`data`, a), `duplicate`)
	assert.False(t, e.On(`data`, nil))

	ok, err := e.Emit(`data`, 1, `two`)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Emit(`other`)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, [][]any{{`a`, 1, `two`}, {`b`, 1, `two`}}, log.get())
}

func TestEmitter_Emit_NoArgs(t *testing.T) {
	e := New()
	var got []any
	called := false
	e.On(`x`, Func(func(args ...any) error {
		called = true
		got = args
		return nil
	}))
	_, _ = e.Emit(`x`)
	assert.True(t, called)
	assert.Empty(t, got)
}

func TestEmitter_Prepend(t *testing.T) {
	e := New()
	var log callLog
	e.On(`x`, log.listener(`1`))
	e.PrependListener(`x`, log.listener(`0`))
	e.PrependOnceListener(`x`, log.listener(`-1`))

	_, _ = e.Emit(`x`)
	_, _ = e.Emit(`x`)

	assert.Equal(t, [][]any{{`-1`}, {`0`}, {`1`}, {`0`}, {`1`}}, log.get())
}

func TestEmitter_Once(t *testing.T) {
	e := New()
	var log callLog
	l := log.listener(`once`)
	require.True(t, e.Once(`x`, l))
	assert.False(t, e.On(`x`, l), `duplicate of the once registration`)
	assert.Equal(t, 1, e.ListenerCount(`x`))
	assert.Equal(t, []*Listener{l}, e.Listeners(`x`))
	raw := e.RawListeners(`x`)
	require.Len(t, raw, 1)
	assert.NotEqual(t, eventtarget.Listener(l), raw[0])

	_, _ = e.Emit(`x`, 1)
	_, _ = e.Emit(`x`, 2)

	assert.Equal(t, [][]any{{`once`, 1}}, log.get())
	assert.Equal(t, 0, e.ListenerCount(`x`))
}

func TestEmitter_Once_RemovedByOriginal(t *testing.T) {
	e := New()
	var log callLog
	l := log.listener(`once`)
	e.Once(`x`, l)
	require.True(t, e.Off(`x`, l))
	_, _ = e.Emit(`x`)
	assert.Empty(t, log.get())
}

func TestEmitter_Once_ConcurrentEmit(t *testing.T) {
	e := New()
	var calls atomic.Int32
	e.Once(`x`, Func(func(...any) error {
		calls.Add(1)
		return nil
	}))

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.Emit(`x`)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestEmitter_NewListener(t *testing.T) {
	e := New()
	var (
		seenTypes []string
		countAt   []int
	)
	e.On(NewListenerEvent, Func(func(args ...any) error {
		eventType := args[0].(string)
		seenTypes = append(seenTypes, eventType)
		countAt = append(countAt, e.ListenerCount(eventType))
		assert.IsType(t, (*Listener)(nil), args[1])
		return nil
	}))

	l := Func(func(...any) error { return nil })
	e.On(`x`, l)
	e.On(`x`, l)
	e.Once(`y`, Func(func(...any) error { return nil }))

	// emitted before the registration, not for rejected duplicates
	assert.Equal(t, []string{`x`, `y`}, seenTypes)
	assert.Equal(t, []int{0, 0}, countAt)
}

func TestEmitter_RemoveListener(t *testing.T) {
	e := New()
	var removed [][]any
	e.On(RemoveListenerEvent, Func(func(args ...any) error {
		removed = append(removed, args)
		return nil
	}))

	a := Func(func(...any) error { return nil })
	b := Func(func(...any) error { return nil })
	e.On(`x`, a)
	e.Once(`x`, b)

	assert.False(t, e.Off(`y`, a))
	require.True(t, e.RemoveListener(`x`, a))
	_, _ = e.Emit(`x`)

	assert.Equal(t, [][]any{{`x`, a}, {`x`, b}}, removed)
}

func TestEmitter_RemoveAllListeners(t *testing.T) {
	e := New()
	names := make(map[*Listener]string)
	named := func(name string) *Listener {
		l := Func(nil)
		names[l] = name
		return l
	}
	var removed []string
	e.On(RemoveListenerEvent, Func(func(args ...any) error {
		removed = append(removed, args[0].(string)+`:`+names[args[1].(*Listener)])
		return nil
	}))
	e.On(`a`, named(`a1`))
	e.On(`a`, named(`a2`))
	e.On(`b`, named(`b1`))

	e.RemoveAllListeners(`b`)
	assert.Equal(t, []string{`b:b1`}, removed)

	removed = nil
	e.RemoveAllListeners()
	// most recent first, and removeListener listeners are removed last
	assert.Equal(t, []string{`a:a2`, `a:a1`}, removed)
	assert.Empty(t, e.EventNames())
}

func TestEmitter_EventNames(t *testing.T) {
	e := New()
	e.On(`b`, Func(nil))
	e.On(`a`, Func(nil))
	assert.Equal(t, []string{`b`, `a`}, e.EventNames())
}

// ============================================================================
// Error semantics
// ============================================================================

func TestEmitter_Emit_UnhandledError(t *testing.T) {
	e := New()

	ok, err := e.Emit(ErrorEvent, io.EOF)
	assert.False(t, ok)
	var unhandled *UnhandledError
	require.ErrorAs(t, err, &unhandled)
	assert.ErrorIs(t, err, io.EOF)

	_, err = e.Emit(ErrorEvent, `not an error`)
	assert.ErrorIs(t, err, ErrUnhandledError)
	assert.Contains(t, err.Error(), `not an error`)

	_, err = e.Emit(ErrorEvent)
	assert.ErrorIs(t, err, ErrUnhandledError)
}

func TestEmitter_Emit_ErrorMonitor(t *testing.T) {
	e := New()
	var log callLog
	e.On(ErrorMonitor, log.listener(`monitor`))

	ok, err := e.Emit(ErrorEvent, io.EOF)
	assert.False(t, ok)
	assert.ErrorIs(t, err, io.EOF)

	e.On(ErrorEvent, log.listener(`handler`))
	ok, err = e.Emit(ErrorEvent, io.EOF)
	assert.True(t, ok)
	assert.NoError(t, err)

	assert.Equal(t, [][]any{{`monitor`, io.EOF}, {`monitor`, io.EOF}, {`handler`, io.EOF}}, log.get())
}

func TestEmitter_ErrorHandler(t *testing.T) {
	var (
		types []string
		errs  []error
	)
	e := New(WithErrorHandler(func(eventType string, err error) {
		types = append(types, eventType)
		errs = append(errs, err)
	}))
	var log callLog
	e.On(`x`, Func(func(...any) error { return io.EOF }))
	e.On(`x`, Func(func(...any) error { panic(`boom`) }))
	e.On(`x`, log.listener(`after`))

	ok, err := e.Emit(`x`)
	assert.True(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, [][]any{{`after`}}, log.get())
	assert.Equal(t, []string{`x`, `x`}, types)
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], io.EOF)
	var panicErr *eventtarget.PanicError
	assert.ErrorAs(t, errs[1], &panicErr)
}

func TestEmitter_StopOnError(t *testing.T) {
	var errs []error
	e := New(WithStopOnError(), WithErrorHandler(func(eventType string, err error) {
		errs = append(errs, err)
	}))
	var log callLog
	fail := true
	e.On(`x`, Func(func(...any) error {
		if fail {
			return io.EOF
		}
		return nil
	}))
	e.Once(`x`, log.listener(`once`))
	e.On(`x`, log.listener(`after`))

	ok, err := e.Emit(`x`)
	assert.True(t, ok)
	assert.NoError(t, err)
	assert.Empty(t, log.get())
	assert.Equal(t, 3, e.ListenerCount(`x`))
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], io.EOF)

	fail = false
	e.Emit(`x`)
	assert.Equal(t, [][]any{{`once`}, {`after`}}, log.get())
	assert.Equal(t, 2, e.ListenerCount(`x`))
}

func TestEmitter_StopOnError_DefaultLogs(t *testing.T) {
	var buf bytes.Buffer
	e := New(WithStopOnError(), WithLogger(stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(&buf), stumpy.WithTimeField(``)),
		stumpy.L.WithLevel(logiface.LevelInformational),
	).Logger()))
	var log callLog
	e.On(`x`, Func(func(...any) error { return io.EOF }))
	e.On(`x`, log.listener(`after`))

	e.Emit(`x`)
	assert.Empty(t, log.get())
	assert.Contains(t, buf.String(), `"msg":"uncaught exception in event handler"`)
	assert.Contains(t, buf.String(), `"type":"x"`)
}

// ============================================================================
// Max listeners
// ============================================================================

func TestEmitter_MaxListenersWarning(t *testing.T) {
	var warnings []error
	e := New(WithMaxListeners(2), WithWarningHandler(func(err error) {
		warnings = append(warnings, err)
	}))
	assert.Equal(t, 2, e.MaxListeners())

	var listeners []*Listener
	for range 4 {
		l := Func(nil)
		listeners = append(listeners, l)
		require.True(t, e.On(`x`, l))
	}

	require.Len(t, warnings, 1, `once per type`)
	var exceeded *MaxListenersExceededError
	require.ErrorAs(t, warnings[0], &exceeded)
	assert.Equal(t, MaxListenersExceededError{Type: `x`, Count: 3, Max: 2}, *exceeded)
	assert.Contains(t, exceeded.Error(), `3 x listeners added`)

	// re-armed once the type has no listeners
	e.RemoveAllListeners(`x`)
	for _, l := range listeners {
		e.On(`x`, l)
	}
	assert.Len(t, warnings, 2)

	require.NoError(t, e.SetMaxListeners(0))
	e.On(`y`, Func(nil))
	e.On(`y`, Func(nil))
	e.On(`y`, Func(nil))
	assert.Len(t, warnings, 2, `unlimited`)

	assert.Error(t, e.SetMaxListeners(-1))
	assert.Panics(t, func() { New(WithMaxListeners(-1)) })
}

func TestEmitter_MaxListenersWarning_DefaultLogs(t *testing.T) {
	var buf bytes.Buffer
	e := New(
		WithMaxListeners(1),
		WithLogger(stumpy.L.New(
			stumpy.L.WithStumpy(stumpy.WithWriter(&buf), stumpy.WithTimeField(``)),
			stumpy.L.WithLevel(logiface.LevelInformational),
		).Logger()),
	)
	e.On(`x`, Func(nil))
	e.On(`x`, Func(nil))

	assert.Contains(t, buf.String(), `"lvl":"warning"`)
	assert.Contains(t, buf.String(), `MaxListenersExceededWarning`)
}

func TestEmitter_ListenerChangeHook(t *testing.T) {
	var changes []string
	var e *Emitter
	e = New(WithListenerChangeHook(func(emitter *Emitter, eventType string, change eventtarget.ListenerChange) {
		assert.Same(t, e, emitter)
		changes = append(changes, eventType+`:`+change.String())
	}))
	l := Func(nil)
	e.Once(`x`, l)
	_, _ = e.Emit(`x`)
	e.On(`y`, l)
	e.RemoveAllListeners()

	assert.Equal(t, []string{`x:added`, `x:removed`, `y:added`, `y:cleared`}, changes)
}

// ============================================================================
// Once helper
// ============================================================================

func TestOnce_Resolves(t *testing.T) {
	e := New()
	go func() {
		for e.ListenerCount(`ready`) == 0 {
			time.Sleep(time.Millisecond)
		}
		_, _ = e.Emit(`ready`, 1, 2)
	}()

	args, err := Once(context.Background(), e, `ready`)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2}, args)
	assert.Equal(t, 0, e.ListenerCount(`ready`))
	assert.Equal(t, 0, e.ListenerCount(ErrorEvent))
}

func TestOnce_Error(t *testing.T) {
	e := New()
	go func() {
		for e.ListenerCount(ErrorEvent) == 0 {
			time.Sleep(time.Millisecond)
		}
		_, _ = e.Emit(ErrorEvent, io.ErrUnexpectedEOF)
	}()

	args, err := Once(context.Background(), e, `ready`)
	assert.Nil(t, args)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, 0, e.ListenerCount(`ready`))
}

func TestOnce_Context(t *testing.T) {
	e := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Once(ctx, e, `never`)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, e.EventNames())

	_, err = Once(ctx, e, `never`)
	assert.ErrorIs(t, err, context.DeadlineExceeded, `already done`)
}

func TestListener_Origin(t *testing.T) {
	origin := new(int)
	l := Wrap(origin, func(...any) error { return nil })
	assert.Same(t, origin, l.Origin())
	assert.Nil(t, Func(nil).Origin())
	assert.Nil(t, (*Listener)(nil).Origin())

	e := New()
	e.Once(`x`, l)
	assert.Same(t, origin, e.Listeners(`x`)[0].Origin())
}
