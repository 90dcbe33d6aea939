// Command schema-exporter renders the component registry to disk: one JSON
// Schema (draft-07) per registered gateway adapter, plus the OpenAPI document
// for the serving surface a flow configuration would expose. Both outputs are
// build artifacts; CI regenerates them and fails on drift.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/c360/flowgate/component"
	"github.com/c360/flowgate/componentregistry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Schema export failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	outDir := flag.String("out", "./schemas", "Output directory for component config schemas")
	openapiOut := flag.String("openapi", "./specs/openapi.v3.yaml", "Output path for the serving-surface OpenAPI spec (empty disables)")
	configPath := flag.String("config", "", "Flow configuration whose exposed endpoints feed the OpenAPI spec")
	metaPath := flag.String("meta", "", "Meta-schema path overriding the embedded one")
	flag.Parse()

	registry := component.NewRegistry()
	if err := componentregistry.Register(registry); err != nil {
		return fmt.Errorf("register components: %w", err)
	}

	factories := registry.ListFactories()
	slog.Info("Exporting component schemas",
		"components", len(factories), "out", *outDir)

	meta, err := metaSchemaLoader(*metaPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	// Sorted order keeps runs reproducible.
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		schema := extractSchema(name, factories[name])
		if err := validateSchema(schema, meta); err != nil {
			return fmt.Errorf("component %s: %w", name, err)
		}

		outFile := filepath.Join(*outDir, schema.ID)
		if err := writeJSONSchema(outFile, schema); err != nil {
			return fmt.Errorf("write schema for %s: %w", name, err)
		}
		slog.Info("Schema written", "component", name, "file", outFile)
	}

	if *openapiOut != "" {
		doc, err := buildServingDocument(*configPath)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(*openapiOut), 0o755); err != nil {
			return fmt.Errorf("create OpenAPI directory: %w", err)
		}
		if err := writeYAMLFile(*openapiOut, doc); err != nil {
			return fmt.Errorf("write OpenAPI spec: %w", err)
		}
		slog.Info("OpenAPI spec written", "file", *openapiOut)
	}

	return nil
}

// ComponentSchema is the exported JSON Schema document for one component.
type ComponentSchema struct {
	Schema      string                    `json:"$schema"`
	ID          string                    `json:"$id"`
	Type        string                    `json:"type"`
	Title       string                    `json:"title"`
	Description string                    `json:"description"`
	Properties  map[string]PropertySchema `json:"properties"`
	Required    []string                  `json:"required"`
	Metadata    ComponentMetadata         `json:"x-component-metadata"`
}

// ComponentMetadata carries the registry metadata that does not belong in
// JSON Schema vocabulary.
type ComponentMetadata struct {
	Name     string `json:"name"`
	Type     string `json:"type"`     // "gateway"
	Protocol string `json:"protocol"` // "http", "websocket", "grpc"
	Domain   string `json:"domain"`   // "serving"
	Version  string `json:"version"`
}

// PropertySchema is a JSON Schema property definition.
type PropertySchema struct {
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	Default     any             `json:"default,omitempty"`
	Enum        []string        `json:"enum,omitempty"`
	Minimum     *int            `json:"minimum,omitempty"`
	Maximum     *int            `json:"maximum,omitempty"`
	Items       *PropertySchema `json:"items,omitempty"`
	Category    string          `json:"x-category,omitempty"` // UI grouping, not a validation keyword
}

// extractSchema converts a component registration into a standalone JSON
// Schema document. The registry stores property types in config vocabulary
// (int, bool, float); the export maps them to JSON Schema types.
func extractSchema(name string, registration *component.Registration) ComponentSchema {
	properties := make(map[string]PropertySchema, len(registration.Schema.Properties))
	for propName, propSchema := range registration.Schema.Properties {
		exported := PropertySchema{
			Type:        mapTypeToJSONSchema(propSchema.Type),
			Description: propSchema.Description,
			Default:     propSchema.Default,
			Enum:        propSchema.Enum,
			Minimum:     propSchema.Minimum,
			Maximum:     propSchema.Maximum,
			Category:    propSchema.Category,
		}

		// Registry schemas do not describe element types yet; string is the
		// only array element type the adapters use.
		if propSchema.Type == "array" {
			exported.Items = &PropertySchema{Type: "string"}
		}

		properties[propName] = exported
	}

	// Required must serialize as [] rather than null.
	required := registration.Schema.Required
	if required == nil {
		required = []string{}
	}

	return ComponentSchema{
		Schema:      "http://json-schema.org/draft-07/schema#",
		ID:          fmt.Sprintf("%s.v1.json", name),
		Type:        "object",
		Title:       fmt.Sprintf("%s Configuration", name),
		Description: registration.Description,
		Properties:  properties,
		Required:    required,
		Metadata: ComponentMetadata{
			Name:     name,
			Type:     registration.Type,
			Protocol: registration.Protocol,
			Domain:   registration.Domain,
			Version:  registration.Version,
		},
	}
}

// mapTypeToJSONSchema maps config property types to JSON Schema types.
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

func writeJSONSchema(filename string, schema ComponentSchema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}
