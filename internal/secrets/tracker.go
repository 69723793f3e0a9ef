package secrets

import (
	"strings"
	"sync"
)

// RedactedPlaceholder replaces tracked secret values in redacted strings.
const RedactedPlaceholder = "[REDACTED]"

// SecretTracker tracks resolved secret values (the API token above all) so
// they can be scrubbed from error messages before those messages are folded
// into resource state or written to logs. It is shared between the HTTP
// client, which registers values, and the effect runner, which redacts.
type SecretTracker struct {
	mu              sync.RWMutex
	resolvedSecrets map[string]struct{} // Stores the raw secret values
}

// NewSecretTracker creates a new, empty tracker.
func NewSecretTracker() *SecretTracker {
	return &SecretTracker{
		resolvedSecrets: make(map[string]struct{}),
	}
}

// Add marks a secret value as having been seen by this tracker instance.
// It is thread-safe. It ignores empty strings.
func (t *SecretTracker) Add(secretValue string) {
	if secretValue == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resolvedSecrets[secretValue] = struct{}{}
}

// IsTracked checks if a given string value is a tracked secret.
// This performs an exact match and is thread-safe.
func (t *SecretTracker) IsTracked(value string) bool {
	if value == "" {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, found := t.resolvedSecrets[value]
	return found
}

// ContainsTrackedSecret checks if the given input string contains any of the
// tracked secret values as a substring. This catches secrets embedded in
// larger strings, such as an Authorization header echoed in an error.
// It is thread-safe.
func (t *SecretTracker) ContainsTrackedSecret(input string) bool {
	if input == "" {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.resolvedSecrets) == 0 {
		return false
	}
	for secret := range t.resolvedSecrets {
		if strings.Contains(input, secret) {
			return true
		}
	}
	return false
}

// RedactString returns the input with every tracked secret value replaced by
// the redaction placeholder. The input is returned unchanged when no tracked
// secret occurs in it.
func (t *SecretTracker) RedactString(input string) string {
	if input == "" {
		return input
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	redacted := input
	for secret := range t.resolvedSecrets {
		if strings.Contains(redacted, secret) {
			redacted = strings.ReplaceAll(redacted, secret, RedactedPlaceholder)
		}
	}
	return redacted
}

// RedactError returns the error's message with tracked secrets scrubbed.
// A nil error yields an empty string.
func (t *SecretTracker) RedactError(err error) string {
	if err == nil {
		return ""
	}
	return t.RedactString(err.Error())
}
