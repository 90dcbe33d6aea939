package main

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// The meta-schema pins down what a valid exported component schema looks
// like: mandatory identity fields, the property keyword subset the registry
// can produce, and complete x-component-metadata. Embedded so the tool
// validates its own output wherever it runs.
//
//go:embed component-schema-meta.json
var metaSchemaJSON []byte

// metaSchemaLoader returns the embedded meta-schema, or the override file
// when one is given. The override exists for trialing contract changes
// before re-embedding.
func metaSchemaLoader(override string) (gojsonschema.JSONLoader, error) {
	if override == "" {
		return gojsonschema.NewBytesLoader(metaSchemaJSON), nil
	}

	data, err := os.ReadFile(override)
	if err != nil {
		return nil, fmt.Errorf("read meta-schema: %w", err)
	}
	return gojsonschema.NewBytesLoader(data), nil
}

// validateSchema checks one exported component schema against the
// meta-schema. A violation means a registration declared something the
// schema contract cannot express, so the export aborts rather than shipping
// a file downstream tooling would choke on.
func validateSchema(schema ComponentSchema, meta gojsonschema.JSONLoader) error {
	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("marshal schema for validation: %w", err)
	}

	result, err := gojsonschema.Validate(meta, gojsonschema.NewBytesLoader(schemaBytes))
	if err != nil {
		return fmt.Errorf("run meta-schema validation: %w", err)
	}

	if !result.Valid() {
		var b strings.Builder
		fmt.Fprintf(&b, "schema %s violates the meta-schema:", schema.ID)
		for _, desc := range result.Errors() {
			fmt.Fprintf(&b, "\n  - %s: %s", desc.Field(), desc.Description())
		}
		return errors.New(b.String())
	}

	return nil
}
