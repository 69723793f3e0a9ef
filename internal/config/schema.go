package config

import (
	_ "embed"
	"fmt"
	"sync"

	atelerrors "github.com/atelier-labs/atelier/pkg/atelier/v1/errors"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Embed the schema file content directly into the compiled binary.
//
//go:embed atelier_schema_v1.0.0.json
var schemaV1Bytes []byte

var (
	schemaV1Loader gojsonschema.JSONLoader
	schemaV1       *gojsonschema.Schema
	schemaOnce     sync.Once
	schemaErr      error
)

// loadSchema compiles the embedded schema once, thread-safely.
func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		if len(schemaV1Bytes) == 0 {
			schemaErr = atelerrors.NewConfigError("embedded schema 'atelier_schema_v1.0.0.json' is empty or not found (ensure file exists in internal/config/)", nil)
			return
		}
		schemaV1Loader = gojsonschema.NewBytesLoader(schemaV1Bytes)
		schemaV1, schemaErr = gojsonschema.NewSchema(schemaV1Loader)
		if schemaErr != nil {
			schemaErr = atelerrors.NewConfigError("failed to compile embedded schema 'atelier_schema_v1.0.0.json'", schemaErr)
		}
	})
	return schemaV1, schemaErr
}

// ValidateWithSchema validates the given YAML document bytes against the
// embedded v1.0.0 schema. The YAML is converted to generic Go data first
// because the validator works on JSON-like structures.
func ValidateWithSchema(documentYAML []byte) error {
	schema, err := loadSchema()
	if err != nil {
		return err
	}

	var jsonData interface{}
	if err := yaml.Unmarshal(documentYAML, &jsonData); err != nil {
		return atelerrors.NewConfigError("failed to parse config YAML for schema validation", err)
	}

	docLoader := gojsonschema.NewGoLoader(jsonData)
	result, err := schema.Validate(docLoader)
	if err != nil {
		return atelerrors.NewConfigError("schema validation process failed", err)
	}

	if !result.Valid() {
		errMsg := "Config failed JSON schema validation:"
		for _, desc := range result.Errors() {
			field := desc.Field()
			if field == "(root)" || field == "" {
				field = desc.Context().String()
			}
			errMsg += fmt.Sprintf("\n  - Field '%s': %s", field, desc.Description())
		}
		return atelerrors.NewValidationError(errMsg, nil)
	}

	return nil
}
