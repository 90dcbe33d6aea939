// Package websocket provides component registration for the WebSocket gateway
package websocket

import (
	"encoding/json"

	"github.com/c360/flowgate/component"
)

// CreateGateway is the factory function for creating WebSocket gateway components
func CreateGateway(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	return NewGateway(rawConfig, deps)
}

// Register registers the WebSocket gateway component with the registry
func Register(registry *component.Registry) error {
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "websocket-gateway",
		Factory:     CreateGateway,
		Schema:      wsGatewaySchema,
		Type:        "gateway",
		Protocol:    "websocket",
		Domain:      "serving",
		Description: "WebSocket gateway multiplexing envelope requests over persistent connections",
		Version:     "0.1.0",
	})
}
