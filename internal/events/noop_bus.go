package events

import "github.com/atelier-labs/atelier/pkg/atelier/v1/events"

// NoOpEventBus is the fallback implementation of the public events.Bus
// interface, used when no event handling is configured. It ensures emitting
// components never need a nil check.
type NoOpEventBus struct{}

// NewNoOpEventBus creates a new instance of the NoOpEventBus.
func NewNoOpEventBus() events.Bus {
	return &NoOpEventBus{}
}

// Emit implements the events.Bus interface method. It does nothing.
func (n *NoOpEventBus) Emit(event events.Event) {
}

var _ events.Bus = (*NoOpEventBus)(nil)
