package events

import (
	"github.com/atelier-labs/atelier/pkg/atelier/v1/events"
	atellog "github.com/atelier-labs/atelier/pkg/atelier/v1/log"
)

// ChannelEventBus implements the public events.Bus interface using a buffered
// Go channel. Emission is non-blocking: the store's fold loop and the effect
// runner must never stall on a slow listener, so a full buffer drops the
// event with a warning instead of blocking.
type ChannelEventBus struct {
	channel chan events.Event
	log     atellog.Logger
}

// NewChannelEventBus creates a new ChannelEventBus with the specified buffer
// size. If bufferSize is non-positive, a default buffer size is used.
// Panics if the provided logger is nil.
func NewChannelEventBus(bufferSize int, log atellog.Logger) *ChannelEventBus {
	const defaultBufferSize = 100
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if log == nil {
		panic("ChannelEventBus requires a non-nil logger")
	}

	bus := &ChannelEventBus{
		channel: make(chan events.Event, bufferSize),
		log:     log.With("component", "ChannelEventBus"),
	}
	bus.log.Debugf("ChannelEventBus initialized with buffer size %d", bufferSize)
	return bus
}

// Emit sends an event onto the internal buffered channel. If the channel
// buffer is full at the time of the call, the event is dropped and a warning
// is logged.
func (c *ChannelEventBus) Emit(event events.Event) {
	select {
	case c.channel <- event:
	default:
		c.log.Warnf("Event channel buffer full, dropping event type '%s'", event.Type)
	}
}

// GetChannel returns the underlying event channel for consumers. This method
// is specific to the ChannelEventBus implementation and is not part of the
// public events.Bus interface.
func (c *ChannelEventBus) GetChannel() <-chan events.Event {
	return c.channel
}

// Close closes the underlying event channel, signaling to consumers reading
// from GetChannel() that no more events will be sent.
func (c *ChannelEventBus) Close() {
	c.log.Debugf("Closing ChannelEventBus channel.")
	close(c.channel)
}

var _ events.Bus = (*ChannelEventBus)(nil)
