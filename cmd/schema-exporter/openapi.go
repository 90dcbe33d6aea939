package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360/flowgate/component"
	"github.com/c360/flowgate/config"
	"github.com/c360/flowgate/endpoint"
	"github.com/c360/flowgate/gateway/httpapi"
)

// buildServingDocument renders the OpenAPI document for the endpoints a flow
// configuration exposes. It builds the endpoint registry exactly the way the
// gateway does at startup, so the exported spec matches what a running
// instance would serve from /openapi.json. Without a configuration the
// default endpoint set is used and the info block stays generic.
func buildServingDocument(configPath string) (map[string]any, error) {
	var flowMeta component.FlowMeta
	var endpointsCfg config.EndpointsConfig

	if configPath != "" {
		loader := config.NewLoader()
		cfg, err := loader.LoadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}

		flowMeta = component.FlowMeta{Name: cfg.Flow.Name, Version: cfg.Flow.Version}
		endpointsCfg = cfg.Endpoints
	}

	custom := make([]endpoint.Descriptor, 0, len(endpointsCfg.Expose))
	for _, ep := range endpointsCfg.Expose {
		custom = append(custom, endpoint.Descriptor{
			Name:    ep.Name,
			Exposed: true,
			Methods: ep.Methods,
			Summary: ep.Summary,
			Tags:    ep.Tags,
		})
	}

	endpoints, err := endpoint.BuildRegistry(endpoint.DefaultsOptions{
		NoCRUDEndpoints:  endpointsCfg.NoCRUDEndpoints,
		NoDebugEndpoints: endpointsCfg.NoDebugEndpoints,
	}, custom)
	if err != nil {
		return nil, fmt.Errorf("build endpoint registry: %w", err)
	}

	return httpapi.OpenAPIDocument(endpoints, flowMeta), nil
}

// writeYAMLFile writes the OpenAPI document as YAML with a generated-file
// header.
func writeYAMLFile(filename string, doc map[string]any) error {
	yamlData, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal YAML: %w", err)
	}

	header := []byte(strings.TrimSpace(`
# OpenAPI 3.0 specification for the flowgate serving surface
# Generated by schema-exporter - DO NOT EDIT MANUALLY
# Regenerate with: schema-exporter -config <flow config> -openapi <this file>
`) + "\n\n")

	content := append(header, yamlData...)

	if err := os.WriteFile(filename, content, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}
