package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	atelerrors "github.com/atelier-labs/atelier/pkg/atelier/v1/errors"
	atellog "github.com/atelier-labs/atelier/pkg/atelier/v1/log"
	"go.opentelemetry.io/otel/trace"
)

// Default log level if not specified or invalid.
const defaultLevel = slog.LevelInfo

// parseLogLevel converts common log level strings (case-insensitive) to slog.Level values.
func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return defaultLevel
	}
}

// defaultLogger implements the public atellog.Logger interface using the
// standard Go slog library.
type defaultLogger struct {
	*slog.Logger
}

var _ atellog.Logger = (*defaultLogger)(nil)

// NewLogger creates a new Logger instance configured with the specified level,
// output format ("text" or "json"), and writer (defaults to os.Stderr).
func NewLogger(levelStr string, formatStr string, writer io.Writer) atellog.Logger {
	level := parseLogLevel(levelStr)
	if writer == nil {
		writer = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelAttribute,
	}

	var baseHandler slog.Handler
	switch strings.ToLower(formatStr) {
	case "json":
		baseHandler = slog.NewJSONHandler(writer, opts)
	case "text":
		fallthrough
	default:
		baseHandler = slog.NewTextHandler(writer, opts)
	}

	// Wrap the base handler so trace/span ids flow into log records.
	otelHandler := NewOtelHandler(baseHandler)

	return &defaultLogger{
		Logger: slog.New(otelHandler),
	}
}

var levelStringMap = map[slog.Level]string{
	slog.LevelDebug: "DEBUG",
	slog.LevelInfo:  "INFO",
	slog.LevelWarn:  "WARN",
	slog.LevelError: "ERROR",
}

// replaceLevelAttribute customizes the standard slog level attribute to be an
// uppercase string (e.g., "INFO").
func replaceLevelAttribute(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level, ok := a.Value.Any().(slog.Level)
		if !ok {
			return a
		}
		levelStr, exists := levelStringMap[level]
		if !exists {
			levelStr = level.String()
		}
		a.Value = slog.StringValue(levelStr)
	}
	return a
}

// NewDefaultLogger provides a basic text logger instance writing to Stderr.
// Useful for simple cases or when configuration is unavailable.
func NewDefaultLogger(levelStr string) atellog.Logger {
	return NewLogger(levelStr, "text", os.Stderr)
}

// Debugf logs a formatted message at the DEBUG level.
func (l *defaultLogger) Debugf(format string, args ...interface{}) {
	if l.Logger.Enabled(context.Background(), slog.LevelDebug) {
		msg := fmt.Sprintf(format, args...)
		l.Logger.Log(context.Background(), slog.LevelDebug, msg)
	}
}

// Infof logs a formatted message at the INFO level.
func (l *defaultLogger) Infof(format string, args ...interface{}) {
	if l.Logger.Enabled(context.Background(), slog.LevelInfo) {
		msg := fmt.Sprintf(format, args...)
		l.Logger.Log(context.Background(), slog.LevelInfo, msg)
	}
}

// Warnf logs a formatted message at the WARN level.
func (l *defaultLogger) Warnf(format string, args ...interface{}) {
	if l.Logger.Enabled(context.Background(), slog.LevelWarn) {
		msg := fmt.Sprintf(format, args...)
		l.Logger.Log(context.Background(), slog.LevelWarn, msg)
	}
}

// Errorf logs a formatted message at the ERROR level. When the last argument
// is an error it is logged structurally; transport failures additionally carry
// method, path and status code attributes.
func (l *defaultLogger) Errorf(format string, args ...interface{}) {
	if l.Logger.Enabled(context.Background(), slog.LevelError) {
		msg := fmt.Sprintf(format, args...)
		l.logHelper(context.Background(), slog.LevelError, msg, args...)
	}
}

// logHelper adds structured error details to log entries. The last argument
// is inspected for an error type; a TransportError gets request attributes,
// any other error just the standard error string.
func (l *defaultLogger) logHelper(ctx context.Context, level slog.Level, msg string, args ...interface{}) {
	logArgs := []any{}

	if len(args) > 0 {
		lastArg := args[len(args)-1]
		if err, ok := lastArg.(error); ok {
			var te *atelerrors.TransportError
			if errors.As(err, &te) {
				logArgs = append(logArgs, slog.String("error_type", "TransportError"))
				if te.Method != "" {
					logArgs = append(logArgs, slog.String("method", te.Method))
				}
				if te.Path != "" {
					logArgs = append(logArgs, slog.String("path", te.Path))
				}
				if te.StatusCode != 0 {
					logArgs = append(logArgs, slog.Int("status_code", te.StatusCode))
				}
				if te.Cause != nil {
					logArgs = append(logArgs, slog.String("error", te.Cause.Error()))
				} else {
					logArgs = append(logArgs, slog.String("error", te.Error()))
				}
			} else {
				logArgs = append(logArgs, slog.String("error", err.Error()))
			}
		}
	}
	l.Logger.Log(ctx, level, msg, logArgs...)
}

// Log logs a message at the specified level with explicit key-value pairs.
func (l *defaultLogger) Log(level slog.Level, msg string, args ...interface{}) {
	l.Logger.Log(context.Background(), level, msg, args...)
}

// LogCtx logs a message at the specified level, picking up trace/span ids
// from the context via the OtelHandler.
func (l *defaultLogger) LogCtx(ctx context.Context, level slog.Level, msg string, args ...interface{}) {
	l.Logger.Log(ctx, level, msg, args...)
}

// With returns a new Logger instance with added attributes.
func (l *defaultLogger) With(args ...interface{}) atellog.Logger {
	return &defaultLogger{Logger: l.Logger.With(args...)}
}

// IsEnabled checks if logging is enabled for the specified level.
func (l *defaultLogger) IsEnabled(level slog.Level) bool {
	return l.Logger.Enabled(context.Background(), level)
}

// --- OtelHandler for Trace/Span ID Injection ---

// OtelHandler is a slog.Handler middleware that injects OpenTelemetry
// trace_id and span_id attributes into log records when a valid span context
// exists in the logging context.
type OtelHandler struct {
	next slog.Handler
}

// NewOtelHandler creates a new OtelHandler wrapping the provided handler.
func NewOtelHandler(next slog.Handler) *OtelHandler {
	return &OtelHandler{next: next}
}

// Enabled forwards the check to the wrapped handler.
func (h *OtelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle extracts span context from the context, adds trace_id and span_id
// attributes if available, and forwards the record to the wrapped handler.
func (h *OtelHandler) Handle(ctx context.Context, record slog.Record) error {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		record.AddAttrs(
			slog.String("trace_id", span.SpanContext().TraceID().String()),
			slog.String("span_id", span.SpanContext().SpanID().String()),
		)
	}
	return h.next.Handle(ctx, record)
}

// WithAttrs returns a new OtelHandler wrapping the result of calling WithAttrs
// on the next handler.
func (h *OtelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewOtelHandler(h.next.WithAttrs(attrs))
}

// WithGroup returns a new OtelHandler wrapping the result of calling WithGroup
// on the next handler.
func (h *OtelHandler) WithGroup(name string) slog.Handler {
	return NewOtelHandler(h.next.WithGroup(name))
}
