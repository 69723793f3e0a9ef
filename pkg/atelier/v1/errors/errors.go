package errors

import (
	"errors"
	"fmt"
)

// --- Atelier Core Error Types ---

// ConfigError represents an error encountered during the loading, parsing,
// or validation of the client configuration or store options.
type ConfigError struct {
	Message string
	Cause   error
}

func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{Message: message, Cause: cause}
}
func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}
func (e *ConfigError) Unwrap() error { return e.Cause }

// ValidationError indicates that some input (e.g., configuration structure,
// schema version, request parameters) failed validation checks.
type ValidationError struct {
	Message string
	Cause   error
}

func NewValidationError(message string, cause error) *ValidationError {
	return &ValidationError{Message: message, Cause: cause}
}
func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}
func (e *ValidationError) Unwrap() error { return e.Cause }

// TransportError represents a failed HTTP exchange with the backend: a network
// failure, a non-2xx response, or a status code that does not match the
// operation's contract (e.g., a create that did not answer 201).
// StatusCode is zero when no response was received at all.
type TransportError struct {
	Method     string
	Path       string
	StatusCode int
	Cause      error
}

func NewTransportError(method, path string, statusCode int, cause error) *TransportError {
	return &TransportError{Method: method, Path: path, StatusCode: statusCode, Cause: cause}
}
func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transport error: %s %s returned status %d", e.Method, e.Path, e.StatusCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("transport error: %s %s: %v", e.Method, e.Path, e.Cause)
	}
	return fmt.Sprintf("transport error: %s %s", e.Method, e.Path)
}
func (e *TransportError) Unwrap() error { return e.Cause }

// DecodeError indicates that a response body could not be decoded into the
// expected payload shape. The exchange itself succeeded at the HTTP level.
type DecodeError struct {
	Path  string
	Cause error
}

func NewDecodeError(path string, cause error) *DecodeError {
	return &DecodeError{Path: path, Cause: cause}
}
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error for %s: %v", e.Path, e.Cause)
}
func (e *DecodeError) Unwrap() error { return e.Cause }

// StaleResultError signifies that a completed operation's result was discarded
// because a newer operation of the same kind had been issued for the same
// resource in the meantime (latest-wins). It is reported through events and
// logs, never folded into resource state.
type StaleResultError struct {
	Resource  string
	Operation string
	Token     uint64
	Latest    uint64
}

func NewStaleResultError(resource, operation string, token, latest uint64) *StaleResultError {
	return &StaleResultError{Resource: resource, Operation: operation, Token: token, Latest: latest}
}
func (e *StaleResultError) Error() string {
	return fmt.Sprintf("stale result for %s/%s: token %d superseded by %d", e.Resource, e.Operation, e.Token, e.Latest)
}

// IsStale checks if an error is a StaleResultError using errors.As.
func IsStale(err error) bool {
	var staleErr *StaleResultError
	return errors.As(err, &staleErr)
}
