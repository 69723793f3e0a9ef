package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	atelerrors "github.com/atelier-labs/atelier/pkg/atelier/v1/errors"
)

// ValidateConfigStructure performs logical validation beyond what the JSON
// schema can express. It returns all problems found, not just the first.
func ValidateConfigStructure(cfg *ClientConfig) []error {
	var errs []error

	if strings.TrimSpace(cfg.Server.BaseURL) == "" {
		errs = append(errs, atelerrors.NewValidationError("server.base_url is required", nil))
	} else {
		raw := cfg.Server.BaseURL
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		if _, err := url.Parse(raw); err != nil {
			errs = append(errs, atelerrors.NewValidationError(fmt.Sprintf("server.base_url %q is not a valid URL", cfg.Server.BaseURL), err))
		}
	}

	if cfg.Server.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Server.Timeout); err != nil {
			errs = append(errs, atelerrors.NewValidationError(fmt.Sprintf("server.timeout %q is not a valid duration", cfg.Server.Timeout), err))
		} else if d < 0 {
			errs = append(errs, atelerrors.NewValidationError("server.timeout cannot be negative", nil))
		}
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, atelerrors.NewValidationError(fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", cfg.Logging.Level), nil))
	}

	switch strings.ToLower(cfg.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, atelerrors.NewValidationError(fmt.Sprintf("logging.format %q is not one of text, json", cfg.Logging.Format), nil))
	}

	if cfg.Events.BufferSize < 0 {
		errs = append(errs, atelerrors.NewValidationError("events.buffer_size cannot be negative", nil))
	}

	return errs
}
