package events

import "time"

// EventType represents the type of an atelier store event.
type EventType string

// Standard Atelier Event Types
const (
	IntentDispatched   EventType = "IntentDispatched"   // An intent entered the store's fold queue
	IntentFolded       EventType = "IntentFolded"       // A reducer applied the intent
	RequestStarted     EventType = "RequestStarted"     // Effect runner began an HTTP call
	RequestSucceeded   EventType = "RequestSucceeded"   // HTTP call completed with the expected status
	RequestFailed      EventType = "RequestFailed"      // HTTP call failed or returned an unexpected status
	StaleResultDropped EventType = "StaleResultDropped" // A superseded request's terminal result was discarded
)

// Event represents a significant occurrence within the atelier store or
// effect runner.
type Event struct {
	// Type categorizes the event.
	Type EventType `json:"type"`
	// Timestamp marks when the event occurred.
	Timestamp time.Time `json:"timestamp"`
	// Resource identifies the resource slice this event concerns (e.g. "orders"),
	// if applicable.
	Resource string `json:"resource,omitempty"`
	// Operation identifies the triggering operation (e.g. "fetch_all", "delete"),
	// if applicable.
	Operation string `json:"operation,omitempty"`
	// RequestID carries the effect runner's correlation id for HTTP lifecycle
	// events, if applicable.
	RequestID string `json:"request_id,omitempty"`
	// Payload contains event-specific data. Secret values (such as the API
	// token) MUST NOT be included in the payload.
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Bus defines the interface for publishing events within the atelier client.
// Implementations could include logging, metrics translation, etc.
type Bus interface {
	// Emit publishes an event to the bus.
	// Implementations should be non-blocking or handle blocking carefully
	// to avoid slowing down the store's fold loop.
	Emit(event Event)
}
