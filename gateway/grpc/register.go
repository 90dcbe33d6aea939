// Package grpc provides component registration for the gRPC gateway
package grpc

import (
	"encoding/json"

	"github.com/c360/flowgate/component"
)

// CreateGateway is the factory function for creating gRPC gateway components
func CreateGateway(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	return NewGateway(rawConfig, deps)
}

// Register registers the gRPC gateway component with the registry
func Register(registry *component.Registry) error {
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "grpc-gateway",
		Factory:     CreateGateway,
		Schema:      grpcGatewaySchema,
		Type:        "gateway",
		Protocol:    "grpc",
		Domain:      "serving",
		Description: "gRPC gateway serving unary and bidi streaming envelope requests",
		Version:     "0.1.0",
	})
}
