package events

import (
	"context"

	"github.com/atelier-labs/atelier/internal/metrics"
	"github.com/atelier-labs/atelier/pkg/atelier/v1/events"
	atellog "github.com/atelier-labs/atelier/pkg/atelier/v1/log"
)

// MetricsEventListener subscribes to the event bus and updates Prometheus
// collectors based on the events it receives.
type MetricsEventListener struct {
	bus        *ChannelEventBus
	log        atellog.Logger
	collectors *metrics.StoreCollectors
}

// NewMetricsEventListener creates a new listener. It requires a
// ChannelEventBus to subscribe to and the collectors it feeds.
func NewMetricsEventListener(bus *ChannelEventBus, collectors *metrics.StoreCollectors, log atellog.Logger) *MetricsEventListener {
	if bus == nil || collectors == nil || log == nil {
		panic("MetricsEventListener requires a non-nil ChannelEventBus, StoreCollectors, and Logger")
	}
	return &MetricsEventListener{
		bus:        bus,
		log:        log.With("component", "MetricsEventListener"),
		collectors: collectors,
	}
}

// Start begins listening for events on the bus. It runs until the bus channel
// is closed or the context is cancelled, so callers run it in a goroutine.
func (l *MetricsEventListener) Start(ctx context.Context) {
	l.log.Debugf("Starting metrics event listener...")
	for {
		select {
		case event, ok := <-l.bus.GetChannel():
			if !ok {
				l.log.Debugf("Event bus channel closed, stopping listener.")
				return
			}
			l.handleEvent(event)
		case <-ctx.Done():
			l.log.Debugf("Context cancelled, stopping metrics event listener.")
			return
		}
	}
}

// handleEvent processes a single event, updating collectors as needed.
func (l *MetricsEventListener) handleEvent(event events.Event) {
	switch event.Type {
	case events.RequestStarted:
		l.collectors.InflightRequests.WithLabelValues(event.Resource).Inc()
	case events.RequestSucceeded:
		l.collectors.InflightRequests.WithLabelValues(event.Resource).Dec()
		l.collectors.RequestsTotal.WithLabelValues(event.Resource, event.Operation, "success").Inc()
	case events.RequestFailed:
		l.collectors.InflightRequests.WithLabelValues(event.Resource).Dec()
		l.collectors.RequestsTotal.WithLabelValues(event.Resource, event.Operation, "failure").Inc()
	case events.StaleResultDropped:
		l.collectors.InflightRequests.WithLabelValues(event.Resource).Dec()
		l.collectors.StaleResultsDropped.WithLabelValues(event.Resource, event.Operation).Inc()
	case events.IntentFolded:
		l.collectors.IntentsFolded.WithLabelValues(event.Resource).Inc()
	}
}
