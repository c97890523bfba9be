// logging.go - package-level structured logging configuration.
//
// Targets log through their own logger if configured via [WithLogger],
// otherwise through the package logger set by [SetStructuredLogger].
// A nil logger disables logging.
//
// Usage:
//
//	eventtarget.SetStructuredLogger(stumpy.L.New(
//	    stumpy.L.WithStumpy(stumpy.WithWriter(os.Stderr)),
//	).Logger())

package eventtarget

import (
	"sync"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

var (
	globalLogger struct {
		logger *logiface.Logger[logiface.Event]
		sync.RWMutex
	}

	// uncaughtLimiter limits the default reporting of listener errors, per
	// event type
	uncaughtLimiter = catrate.NewLimiter(map[time.Duration]int{
		time.Second: 10,
		time.Minute: 100,
	})
)

// SetStructuredLogger sets the package logger, used by targets without
// their own logger.
func SetStructuredLogger(logger *logiface.Logger[logiface.Event]) {
	globalLogger.Lock()
	defer globalLogger.Unlock()
	globalLogger.logger = logger
}

func getGlobalLogger() *logiface.Logger[logiface.Event] {
	globalLogger.RLock()
	defer globalLogger.RUnlock()
	return globalLogger.logger
}

func (x *EventTarget) log() *logiface.Logger[logiface.Event] {
	if x.logger != nil {
		return x.logger
	}
	return getGlobalLogger()
}

// logUncaught is the default error handler.
func (x *EventTarget) logUncaught(event *Event, err error) {
	b := x.log().Err()
	if !b.Enabled() {
		return
	}
	next, ok := uncaughtLimiter.Allow(event.Type())
	if !ok {
		b.Release()
		return
	}
	b = b.Str(`type`, event.Type()).
		Str(`phase`, event.EventPhase().String()).
		Err(err)
	if !next.IsZero() {
		b = b.Str(`limited_until`, next.Format(time.RFC3339))
	}
	b.Log(`uncaught exception in event handler`)
}
