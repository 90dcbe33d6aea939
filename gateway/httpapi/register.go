// Package httpapi provides component registration for the HTTP gateway
package httpapi

import (
	"encoding/json"

	"github.com/c360/flowgate/component"
)

// CreateGateway is the factory function for creating HTTP gateway components
func CreateGateway(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	return NewGateway(rawConfig, deps)
}

// Register registers the HTTP gateway component with the registry
func Register(registry *component.Registry) error {
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "http-gateway",
		Factory:     CreateGateway,
		Schema:      httpGatewaySchema,
		Type:        "gateway",
		Protocol:    "http",
		Domain:      "serving",
		Description: "HTTP gateway exposing the served endpoints with status and OpenAPI surfaces",
		Version:     "0.1.0",
	})
}
