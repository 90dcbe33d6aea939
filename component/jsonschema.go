package component

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/flowgate/errors"
)

// schemaDocument is the JSON Schema (draft-07) rendering of a ConfigSchema.
// Registrations declare schemas as ConfigSchema metadata; this translation is
// what lets the registry enforce them with a real JSON Schema validator.
type schemaDocument struct {
	Schema     string                    `json:"$schema"`
	Type       string                    `json:"type"`
	Properties map[string]schemaProperty `json:"properties"`
	Required   []string                  `json:"required"`
}

// schemaProperty represents a JSON Schema property definition
type schemaProperty struct {
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	Default     any             `json:"default,omitempty"`
	Enum        []string        `json:"enum,omitempty"`
	Minimum     *int            `json:"minimum,omitempty"`
	Maximum     *int            `json:"maximum,omitempty"`
	Items       *schemaProperty `json:"items,omitempty"` // For array types
}

// buildSchemaDocument converts a ConfigSchema to a JSON Schema document
func buildSchemaDocument(schema ConfigSchema) schemaDocument {
	properties := make(map[string]schemaProperty, len(schema.Properties))
	for propName, propSchema := range schema.Properties {
		jsonSchemaProp := schemaProperty{
			Type:        mapTypeToJSONSchema(propSchema.Type),
			Description: propSchema.Description,
			Default:     propSchema.Default,
			Enum:        propSchema.Enum,
			Minimum:     propSchema.Minimum,
			Maximum:     propSchema.Maximum,
		}

		// Handle array types
		if propSchema.Type == "array" {
			jsonSchemaProp.Items = &schemaProperty{
				Type: "string", // Default to string items, can be enhanced later
			}
		}

		properties[propName] = jsonSchemaProp
	}

	// Ensure Required is an empty array instead of nil
	required := schema.Required
	if required == nil {
		required = []string{}
	}

	return schemaDocument{
		Schema:     "http://json-schema.org/draft-07/schema#",
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

// mapTypeToJSONSchema maps component property types to JSON Schema types
func mapTypeToJSONSchema(propType string) string {
	switch propType {
	case "int", "float":
		return "number"
	case "bool":
		return "boolean"
	case "array":
		return "array"
	case "object":
		return "object"
	default:
		return "string"
	}
}

// ValidateAgainstSchema validates raw component configuration against the
// factory's registered ConfigSchema. A schema with no properties and no
// required fields accepts anything, so factories without schemas still work.
func ValidateAgainstSchema(rawConfig json.RawMessage, schema ConfigSchema) error {
	if len(schema.Properties) == 0 && len(schema.Required) == 0 {
		return nil
	}

	// Missing config is equivalent to an empty object; required-field
	// checks still apply to it.
	if len(rawConfig) == 0 {
		rawConfig = json.RawMessage("{}")
	}

	schemaBytes, err := json.Marshal(buildSchemaDocument(schema))
	if err != nil {
		return errors.Wrap(err, "ConfigValidator", "ValidateAgainstSchema", "schema marshaling")
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaBytes)
	documentLoader := gojsonschema.NewBytesLoader(rawConfig)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return errors.WrapInvalid(err, "ConfigValidator", "ValidateAgainstSchema", "schema evaluation")
	}

	if !result.Valid() {
		// Build error message from validation errors
		var sb strings.Builder
		sb.WriteString("config does not match component schema:")
		for _, desc := range result.Errors() {
			sb.WriteString(fmt.Sprintf("\n  - %s: %s", desc.Field(), desc.Description()))
		}
		return errors.WrapInvalid(fmt.Errorf("%s", sb.String()),
			"ConfigValidator", "ValidateAgainstSchema", "schema validation")
	}

	return nil
}
