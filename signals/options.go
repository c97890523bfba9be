package signals

import (
	"errors"

	"github.com/joeycumines/go-eventtarget"
	"github.com/joeycumines/logiface"
)

// Option configures a [Bridge].
type Option interface {
	applyBridge(*bridgeOptions) error
}

// EventFactory creates the event dispatched for a received signal.
type EventFactory func(delivery Delivery) *eventtarget.Event

type bridgeOptions struct {
	scheduler eventtarget.Scheduler
	logger    *logiface.Logger[logiface.Event]
	factory   EventFactory
}

type bridgeOptionImpl struct {
	applyBridgeFunc func(*bridgeOptions) error
}

func (o *bridgeOptionImpl) applyBridge(opts *bridgeOptions) error {
	return o.applyBridgeFunc(opts)
}

// WithScheduler dispatches signal events via scheduler, e.g. an
// *eventloop.Loop, rather than on the relay goroutine.
func WithScheduler(scheduler eventtarget.Scheduler) Option {
	return &bridgeOptionImpl{func(opts *bridgeOptions) error {
		opts.scheduler = scheduler
		return nil
	}}
}

// WithEventFactory replaces the default event, a trusted custom event with
// the [Delivery] as its detail.
func WithEventFactory(factory EventFactory) Option {
	return &bridgeOptionImpl{func(opts *bridgeOptions) error {
		if factory == nil {
			return errors.New(`event factory must not be nil`)
		}
		opts.factory = factory
		return nil
	}}
}

// WithLogger configures the logger.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &bridgeOptionImpl{func(opts *bridgeOptions) error {
		opts.logger = logger
		return nil
	}}
}

func resolveBridgeOptions(opts []Option) (*bridgeOptions, error) {
	cfg := &bridgeOptions{factory: defaultEvent}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyBridge(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
