package config_test

import (
	"testing"
	"time"

	"github.com/atelier-labs/atelier/internal/config"
	atelerrors "github.com/atelier-labs/atelier/pkg/atelier/v1/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `
schemaVersion: "1.0.0"
server:
  base_url: "api.example.com:8080"
  timeout: "15s"
  user_agent: "atelier-test"
logging:
  level: "debug"
  format: "json"
events:
  buffer_size: 64
prefs:
  path: "/tmp/prefs.toml"
`

func TestLoadConfig_Valid(t *testing.T) {
	cfg, err := config.LoadConfig([]byte(validConfig), "test.yaml")
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", cfg.SchemaVersion)
	assert.Equal(t, "api.example.com:8080", cfg.Server.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.ServerTimeout())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 64, cfg.Events.BufferSize)
	assert.Equal(t, "/tmp/prefs.toml", cfg.Prefs.Path)
	assert.Equal(t, "test.yaml", cfg.FilePath)
}

func TestLoadConfig_EmptyContent(t *testing.T) {
	_, err := config.LoadConfig(nil, "test.yaml")
	require.Error(t, err)

	var ce *atelerrors.ConfigError
	assert.ErrorAs(t, err, &ce)
}

func TestLoadConfig_MissingBaseURLFailsSchema(t *testing.T) {
	doc := `
schemaVersion: "1.0.0"
server: {}
`
	_, err := config.LoadConfig([]byte(doc), "test.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation")
}

func TestLoadConfig_UnknownFieldRejected(t *testing.T) {
	doc := `
schemaVersion: "1.0.0"
server:
  base_url: "api.example.com"
workers: 4
`
	_, err := config.LoadConfig([]byte(doc), "test.yaml")
	require.Error(t, err, "unknown top-level fields must be rejected")
}

func TestLoadConfig_IncompatibleMajorVersion(t *testing.T) {
	doc := `
schemaVersion: "2.0.0"
server:
  base_url: "api.example.com"
`
	_, err := config.LoadConfig([]byte(doc), "test.yaml")
	require.Error(t, err)

	var ve *atelerrors.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestLoadConfig_BadTimeoutRejected(t *testing.T) {
	doc := `
schemaVersion: "1.0.0"
server:
  base_url: "api.example.com"
  timeout: "not-a-duration"
`
	_, err := config.LoadConfig([]byte(doc), "test.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestLoadConfig_BadLogLevelFailsSchema(t *testing.T) {
	doc := `
schemaVersion: "1.0.0"
server:
  base_url: "api.example.com"
logging:
  level: "loud"
`
	_, err := config.LoadConfig([]byte(doc), "test.yaml")
	require.Error(t, err)
}

func TestValidateWithSchema_MinimalDocument(t *testing.T) {
	doc := `
schemaVersion: "1.0"
server:
  base_url: "localhost:3000"
`
	require.NoError(t, config.ValidateWithSchema([]byte(doc)))

	cfg, err := config.LoadConfig([]byte(doc), "min.yaml")
	require.NoError(t, err)
	assert.Zero(t, cfg.ServerTimeout(), "absent timeout reads as zero")
}
