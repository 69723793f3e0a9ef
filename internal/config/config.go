// Package config loads and validates the client configuration file. Loading
// is strict: the YAML must match the embedded JSON schema, carry a compatible
// schema version, and contain no unknown fields.
package config

import "time"

// ClientConfig is the root of the YAML configuration document.
type ClientConfig struct {
	// SchemaVersion must be a v1 version string, e.g. "1.0.0".
	SchemaVersion string        `yaml:"schemaVersion"`
	Server        ServerConfig  `yaml:"server"`
	Logging       LoggingConfig `yaml:"logging,omitempty"`
	Events        EventsConfig  `yaml:"events,omitempty"`
	Prefs         PrefsConfig   `yaml:"prefs,omitempty"`

	// FilePath records where the config was loaded from. Not part of the document.
	FilePath string `yaml:"-"`
}

// ServerConfig describes the backend API endpoint.
type ServerConfig struct {
	// BaseURL is the backend base URL, host:port or a full URL.
	BaseURL string `yaml:"base_url"`
	// Timeout is an optional per-request timeout in Go duration format.
	Timeout string `yaml:"timeout,omitempty"`
	// UserAgent optionally overrides the client's User-Agent header.
	UserAgent string `yaml:"user_agent,omitempty"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level,omitempty"`
	// Format is text or json. Defaults to text.
	Format string `yaml:"format,omitempty"`
}

// EventsConfig controls the in-process event bus.
type EventsConfig struct {
	// BufferSize is the event channel buffer. Non-positive uses the default.
	BufferSize int `yaml:"buffer_size,omitempty"`
}

// PrefsConfig points at the local preferences file.
type PrefsConfig struct {
	// Path overrides the default preferences file location.
	Path string `yaml:"path,omitempty"`
}

// ServerTimeout returns the parsed request timeout, zero when unset.
// Validation has already rejected unparseable values.
func (c *ClientConfig) ServerTimeout() time.Duration {
	if c.Server.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Server.Timeout)
	if err != nil {
		return 0
	}
	return d
}
