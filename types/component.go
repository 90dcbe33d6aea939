// Package types contains shared domain types used across the flowgate gateway
package types

import (
	"encoding/json"
	"fmt"

	"github.com/c360/flowgate/errors"
)

// ComponentType represents the category of a component
type ComponentType string

// Component type constants
const (
	ComponentTypeGateway ComponentType = "gateway"
)

// ComponentConfig provides configuration for creating a component instance
// The instance name comes from the map key in the components configuration.
// This structure is shared between the config and component packages.
type ComponentConfig struct {
	Type    ComponentType   `json:"type"`    // Component type (gateway)
	Name    string          `json:"name"`    // Factory/component name (e.g., "http-gateway", "grpc-gateway")
	Enabled bool            `json:"enabled"` // Whether component is enabled
	Config  json.RawMessage `json:"config"`  // Component-specific configuration
}

// Validate ensures the component configuration is valid
func (c ComponentConfig) Validate() error {
	if c.Type == "" {
		return errors.WrapInvalid(
			errors.ErrMissingConfig,
			"ComponentConfig",
			"Validate",
			"component type cannot be empty",
		)
	}
	if c.Name == "" {
		return errors.WrapInvalid(
			errors.ErrMissingConfig,
			"ComponentConfig",
			"Validate",
			"component factory name cannot be empty",
		)
	}

	switch c.Type {
	case ComponentTypeGateway:
		return nil
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "ComponentConfig", "Validate",
			fmt.Sprintf("invalid component type: %s", c.Type))
	}
}

// String implements fmt.Stringer for ComponentType
func (ct ComponentType) String() string {
	return string(ct)
}

// FlowMeta identifies the flow a gateway fronts.
// This structure decouples flow identity from the config package, allowing
// adapters to stamp responses and log streams without creating dependencies
// on configuration structures.
type FlowMeta struct {
	Name    string // Flow name (e.g., "search-flow", "indexer")
	Version string // Flow version reported on the status surface (e.g., "1.4.0")
}
