package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	atelerrors "github.com/atelier-labs/atelier/pkg/atelier/v1/errors"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// SupportedSchemaVersionConstraint defines the SemVer constraint that loaded
// configs must satisfy. A v1 client only accepts v1 configs.
const SupportedSchemaVersionConstraint = "v1"

// LoadConfig parses the given YAML bytes into a ClientConfig, validates it
// against the embedded JSON schema, checks schema version compatibility, and
// performs logical validation.
func LoadConfig(configYAML []byte, filePathHint string) (*ClientConfig, error) {
	if len(configYAML) == 0 {
		return nil, atelerrors.NewConfigError("config content cannot be empty", nil)
	}

	if err := ValidateWithSchema(configYAML); err != nil {
		return nil, atelerrors.NewConfigError(fmt.Sprintf("config '%s' failed schema validation", filePathHint), err)
	}

	// Strict decoding catches typos and unsupported fields early.
	var cfg ClientConfig
	if err := yamlUnmarshalStrict(configYAML, &cfg); err != nil {
		return nil, atelerrors.NewConfigError(fmt.Sprintf("failed to parse config YAML '%s'", filePathHint), err)
	}
	cfg.FilePath = filePathHint

	if cfg.SchemaVersion == "" {
		return nil, atelerrors.NewValidationError(fmt.Sprintf("config '%s' is missing required 'schemaVersion' field", filePathHint), nil)
	}
	configSemVer := cfg.SchemaVersion
	if !strings.HasPrefix(configSemVer, "v") {
		configSemVer = "v" + configSemVer
	}
	if !semver.IsValid(configSemVer) {
		return nil, atelerrors.NewValidationError(fmt.Sprintf("config '%s' has invalid 'schemaVersion' format: '%s'", filePathHint, cfg.SchemaVersion), nil)
	}
	if semver.Major(configSemVer) != SupportedSchemaVersionConstraint {
		return nil, atelerrors.NewValidationError(
			fmt.Sprintf("config '%s' schemaVersion '%s' is not compatible with client requirement '%s'",
				filePathHint, cfg.SchemaVersion, SupportedSchemaVersionConstraint),
			nil,
		)
	}

	validationErrs := ValidateConfigStructure(&cfg)
	if len(validationErrs) > 0 {
		var errorMessages []string
		for _, vErr := range validationErrs {
			errorMessages = append(errorMessages, vErr.Error())
		}
		combinedMessage := fmt.Sprintf("config '%s' has %d validation error(s):\n- %s",
			filePathHint, len(errorMessages), strings.Join(errorMessages, "\n- "))
		return nil, atelerrors.NewValidationError(combinedMessage, validationErrs[0])
	}

	return &cfg, nil
}

// LoadConfigFromFile is a convenience function to read a config from disk.
func LoadConfigFromFile(filePath string) (*ClientConfig, error) {
	if filePath == "" {
		return nil, atelerrors.NewConfigError("config file path cannot be empty", nil)
	}
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, atelerrors.NewConfigError(fmt.Sprintf("failed to get absolute path for '%s'", filePath), err)
	}
	yamlFile, err := os.ReadFile(absPath)
	if err != nil {
		return nil, atelerrors.NewConfigError(fmt.Sprintf("failed to read config file '%s'", absPath), err)
	}
	return LoadConfig(yamlFile, absPath)
}

// yamlUnmarshalStrict disallows unknown fields so typos in config files fail
// loudly instead of being silently ignored.
func yamlUnmarshalStrict(in []byte, out interface{}) error {
	decoder := yaml.NewDecoder(strings.NewReader(string(in)))
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("YAML parsing error: %w", err)
	}
	return nil
}
