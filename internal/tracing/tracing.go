package tracing

import (
	"errors"

	intsecrets "github.com/atelier-labs/atelier/internal/secrets"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// RecordErrorRedacted records an error on a span with tracked secret values
// scrubbed from the message first, so a token embedded in an HTTP error never
// leaves the process through trace export. Does nothing if the error is nil or
// the span is nil or not recording.
func RecordErrorRedacted(span oteltrace.Span, err error, tracker *intsecrets.SecretTracker) {
	if err == nil || span == nil || !span.IsRecording() {
		return
	}
	msg := err.Error()
	if tracker != nil {
		msg = tracker.RedactString(msg)
	}
	redacted := errors.New(msg)
	span.RecordError(redacted, oteltrace.WithStackTrace(true))
	span.SetStatus(codes.Error, msg)
}
