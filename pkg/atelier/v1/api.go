package v1

import (
	"github.com/atelier-labs/atelier/internal/intent"
	"github.com/atelier-labs/atelier/pkg/atelier/v1/events"
	atelerrors "github.com/atelier-labs/atelier/pkg/atelier/v1/errors"
	"github.com/atelier-labs/atelier/pkg/atelier/v1/metrics"
	"github.com/atelier-labs/atelier/pkg/atelier/v1/tracing"
)

// StoreV1 defines the public interface for the atelier resource store: the
// composed state tree of every cached backend resource, mutated exclusively
// by folding dispatched intents one at a time.
type StoreV1 interface {
	// Dispatch enqueues an intent for folding. Intents are folded strictly in
	// dispatch order by a single consumer; Dispatch never blocks on I/O.
	Dispatch(in intent.Intent)

	// Subscribe returns a channel that receives a (coalesced) signal after
	// each fold, so consumers can re-read snapshots without polling.
	Subscribe() <-chan struct{}

	// Close stops the fold loop. The store is otherwise created once at
	// process start and lives for the session.
	Close() error

	// MetricsRegistryProvider returns the underlying metrics provider.
	MetricsRegistryProvider() metrics.RegistryProvider
	// TracerProvider returns the underlying tracing provider.
	TracerProvider() tracing.TracerProvider

	// Setter methods for configuring store components programmatically.
	// They must be called before the first Dispatch.
	SetEventBus(bus events.Bus) error
	SetMetricsRegistryProvider(provider metrics.RegistryProvider) error
	SetTracerProvider(provider tracing.TracerProvider) error
	SetQueueCapacity(size int) error
}

// StoreOption is a function type used to configure the store at creation.
type StoreOption func(StoreV1) error

// WithEventBus is a store option to provide a custom event bus.
func WithEventBus(bus events.Bus) StoreOption {
	return func(s StoreV1) error {
		if bus == nil {
			return atelerrors.NewConfigError("event bus cannot be nil", nil)
		}
		return s.SetEventBus(bus)
	}
}

// WithMetricsRegistryProvider is a store option to provide a custom metrics provider.
func WithMetricsRegistryProvider(provider metrics.RegistryProvider) StoreOption {
	return func(s StoreV1) error {
		if provider == nil {
			return atelerrors.NewConfigError("metrics registry provider cannot be nil", nil)
		}
		return s.SetMetricsRegistryProvider(provider)
	}
}

// WithTracerProvider is a store option to provide a custom tracing provider.
func WithTracerProvider(provider tracing.TracerProvider) StoreOption {
	return func(s StoreV1) error {
		if provider == nil {
			return atelerrors.NewConfigError("tracer provider cannot be nil", nil)
		}
		return s.SetTracerProvider(provider)
	}
}

// WithQueueCapacity is a store option to set the intent queue's buffer size.
func WithQueueCapacity(size int) StoreOption {
	return func(s StoreV1) error {
		if size < 0 {
			return atelerrors.NewConfigError("queue capacity cannot be negative", nil)
		}
		return s.SetQueueCapacity(size)
	}
}
