package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/c360/flowgate/component"
	"github.com/c360/flowgate/componentregistry"
)

// TestSchemaGeneration runs the export pipeline over the real component
// registry: every registered adapter must produce a schema that passes the
// embedded meta-schema and lands on disk as valid JSON.
func TestSchemaGeneration(t *testing.T) {
	schemasDir := t.TempDir()

	registry := component.NewRegistry()
	if err := componentregistry.Register(registry); err != nil {
		t.Fatalf("Failed to register components: %v", err)
	}

	factories := registry.ListFactories()
	if len(factories) == 0 {
		t.Fatal("No component factories registered")
	}

	meta, err := metaSchemaLoader("")
	if err != nil {
		t.Fatalf("Failed to load embedded meta-schema: %v", err)
	}

	for name, registration := range factories {
		schema := extractSchema(name, registration)

		if schema.Schema != "http://json-schema.org/draft-07/schema#" {
			t.Errorf("Component %s: invalid $schema value: %s", name, schema.Schema)
		}
		if schema.ID != name+".v1.json" {
			t.Errorf("Component %s: invalid $id value: %s", name, schema.ID)
		}
		if schema.Type != "object" {
			t.Errorf("Component %s: invalid type value: %s", name, schema.Type)
		}
		if schema.Required == nil {
			t.Errorf("Component %s: required field should not be nil", name)
		}

		if err := validateSchema(schema, meta); err != nil {
			t.Errorf("Component %s: meta-schema validation failed: %v", name, err)
		}

		outFile := filepath.Join(schemasDir, schema.ID)
		if err := writeJSONSchema(outFile, schema); err != nil {
			t.Fatalf("Failed to write schema for %s: %v", name, err)
		}

		data, err := os.ReadFile(outFile)
		if err != nil {
			t.Fatalf("Failed to read schema file %s: %v", outFile, err)
		}
		var parsed map[string]any
		if err := json.Unmarshal(data, &parsed); err != nil {
			t.Errorf("Schema file %s is not valid JSON: %v", outFile, err)
		}
	}

	// The three protocol adapters must all be present.
	for _, name := range []string{"http-gateway", "websocket-gateway", "grpc-gateway"} {
		if _, ok := factories[name]; !ok {
			t.Errorf("Expected component %s to be registered", name)
		}
	}
}

// TestMetaSchemaCompiles verifies the embedded meta-schema is valid JSON and
// compiles as a JSON Schema, including its internal $ref resolution.
func TestMetaSchemaCompiles(t *testing.T) {
	var parsed map[string]any
	if err := json.Unmarshal(metaSchemaJSON, &parsed); err != nil {
		t.Fatalf("Embedded meta-schema is not valid JSON: %v", err)
	}

	if _, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(metaSchemaJSON)); err != nil {
		t.Fatalf("Embedded meta-schema does not compile: %v", err)
	}
}

// TestValidateSchema_RejectsContractViolations exercises the meta-schema
// strictness the export relies on.
func TestValidateSchema_RejectsContractViolations(t *testing.T) {
	meta, err := metaSchemaLoader("")
	if err != nil {
		t.Fatalf("Failed to load embedded meta-schema: %v", err)
	}

	valid := func() ComponentSchema {
		return ComponentSchema{
			Schema:      "http://json-schema.org/draft-07/schema#",
			ID:          "test-gateway.v1.json",
			Type:        "object",
			Title:       "test-gateway Configuration",
			Description: "Test adapter",
			Properties: map[string]PropertySchema{
				"port": {Type: "number", Description: "Listen port"},
			},
			Required: []string{"port"},
			Metadata: ComponentMetadata{
				Name:     "test-gateway",
				Type:     "gateway",
				Protocol: "http",
				Domain:   "serving",
				Version:  "0.1.0",
			},
		}
	}

	if err := validateSchema(valid(), meta); err != nil {
		t.Fatalf("Valid schema rejected: %v", err)
	}

	missingProtocol := valid()
	missingProtocol.Metadata.Protocol = ""
	if err := validateSchema(missingProtocol, meta); err == nil {
		t.Error("Schema with empty protocol should fail meta-schema validation")
	}

	badPropertyType := valid()
	badPropertyType.Properties["port"] = PropertySchema{Type: "integer"}
	if err := validateSchema(badPropertyType, meta); err == nil {
		t.Error("Schema with non-JSON-Schema property type should fail validation")
	}

	badCategory := valid()
	badCategory.Properties["port"] = PropertySchema{Type: "number", Category: "misc"}
	if err := validateSchema(badCategory, meta); err == nil {
		t.Error("Schema with unknown x-category should fail validation")
	}
}

// TestExtractSchema checks the registration-to-JSON-Schema conversion.
func TestExtractSchema(t *testing.T) {
	testReg := &component.Registration{
		Description: "Test adapter",
		Type:        "gateway",
		Protocol:    "http",
		Domain:      "serving",
		Version:     "1.0.0",
		Schema: component.ConfigSchema{
			Properties: map[string]component.PropertySchema{
				"host": {
					Type:        "string",
					Description: "Bind address",
					Default:     "0.0.0.0",
					Category:    "basic",
				},
				"port": {
					Type:        "int",
					Description: "Listen port",
					Minimum:     intPtr(1),
					Maximum:     intPtr(65535),
				},
				"cors_origins": {
					Type:        "array",
					Description: "Allowed origins",
				},
			},
			Required: []string{"port"},
		},
	}

	schema := extractSchema("test-gateway", testReg)

	if schema.ID != "test-gateway.v1.json" {
		t.Errorf("Invalid $id: %s", schema.ID)
	}
	if len(schema.Properties) != 3 {
		t.Errorf("Expected 3 properties, got %d", len(schema.Properties))
	}
	if got := schema.Properties["port"].Type; got != "number" {
		t.Errorf("port type = %s, want number", got)
	}
	if got := schema.Properties["host"].Category; got != "basic" {
		t.Errorf("host x-category = %s, want basic", got)
	}
	if items := schema.Properties["cors_origins"].Items; items == nil || items.Type != "string" {
		t.Errorf("cors_origins items = %+v, want string items", items)
	}
	if len(schema.Required) != 1 || schema.Required[0] != "port" {
		t.Errorf("Required = %v, want [port]", schema.Required)
	}
	if schema.Metadata.Name != "test-gateway" || schema.Metadata.Domain != "serving" {
		t.Errorf("Metadata = %+v", schema.Metadata)
	}
}

// TestMapTypeToJSONSchema checks the config-to-JSON-Schema type mapping.
func TestMapTypeToJSONSchema(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"string", "string"},
		{"int", "number"},
		{"float", "number"},
		{"bool", "boolean"},
		{"array", "array"},
		{"object", "object"},
		{"enum", "string"},
		{"unknown", "string"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := mapTypeToJSONSchema(tt.input); got != tt.expected {
				t.Errorf("mapTypeToJSONSchema(%s) = %s, want %s", tt.input, got, tt.expected)
			}
		})
	}
}

// TestBuildServingDocument_Defaults renders the OpenAPI document without a
// flow configuration: default endpoints, generic info block.
func TestBuildServingDocument_Defaults(t *testing.T) {
	doc, err := buildServingDocument("")
	if err != nil {
		t.Fatalf("buildServingDocument failed: %v", err)
	}

	if doc["openapi"] != "3.0.3" {
		t.Errorf("openapi = %v, want 3.0.3", doc["openapi"])
	}

	info, ok := doc["info"].(map[string]any)
	if !ok {
		t.Fatal("info block missing")
	}
	if info["title"] != "flow gateway" {
		t.Errorf("title = %v, want flow gateway", info["title"])
	}

	paths, ok := doc["paths"].(map[string]any)
	if !ok {
		t.Fatal("paths block missing")
	}
	for _, route := range []string{"/index", "/search", "/post"} {
		if _, ok := paths[route]; !ok {
			t.Errorf("Default route %s missing from document", route)
		}
	}
}

// TestBuildServingDocument_WithConfig loads a flow configuration and checks
// the document reflects its identity, custom endpoints, and suppressions.
func TestBuildServingDocument_WithConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "flow.json")
	cfgJSON := `{
		"flow": {"name": "search-flow", "version": "2.1.0"},
		"endpoints": {
			"no_debug_endpoints": true,
			"expose": [
				{"name": "/rerank", "methods": ["POST"], "summary": "Rerank results", "tags": ["Custom"]}
			]
		}
	}`
	if err := os.WriteFile(cfgPath, []byte(cfgJSON), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	doc, err := buildServingDocument(cfgPath)
	if err != nil {
		t.Fatalf("buildServingDocument failed: %v", err)
	}

	info := doc["info"].(map[string]any)
	if info["title"] != "search-flow" {
		t.Errorf("title = %v, want search-flow", info["title"])
	}
	if info["version"] != "2.1.0" {
		t.Errorf("version = %v, want 2.1.0", info["version"])
	}

	paths := doc["paths"].(map[string]any)
	if _, ok := paths["/rerank"]; !ok {
		t.Error("Custom endpoint /rerank missing from document")
	}
	if _, ok := paths["/post"]; ok {
		t.Error("Debug endpoint /post should be suppressed")
	}
	if _, ok := paths["/index"]; !ok {
		t.Error("CRUD endpoint /index missing from document")
	}

	// Round-trip through the YAML writer.
	yamlPath := filepath.Join(t.TempDir(), "openapi.v3.yaml")
	if err := writeYAMLFile(yamlPath, doc); err != nil {
		t.Fatalf("writeYAMLFile failed: %v", err)
	}

	data, err := os.ReadFile(yamlPath)
	if err != nil {
		t.Fatalf("Failed to read YAML output: %v", err)
	}
	if !strings.HasPrefix(string(data), "# OpenAPI 3.0 specification") {
		t.Error("YAML output missing generated-file header")
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("YAML output does not parse: %v", err)
	}
	if parsed["openapi"] != "3.0.3" {
		t.Errorf("Parsed openapi = %v, want 3.0.3", parsed["openapi"])
	}
}

func intPtr(i int) *int {
	return &i
}
