// Package componentregistry wires every built-in component factory into a
// component registry. The composition root calls Register once at startup and
// then creates instances from configuration.
package componentregistry

import (
	"errors"

	"github.com/c360/flowgate/component"
	pkgerrors "github.com/c360/flowgate/errors"
	gatewaygrpc "github.com/c360/flowgate/gateway/grpc"
	"github.com/c360/flowgate/gateway/httpapi"
	gatewaywebsocket "github.com/c360/flowgate/gateway/websocket"
)

// Register registers all built-in components with the provided registry.
//
// Protocol adapters (all fronting the same dispatcher and endpoint registry):
//   - HTTP gateway (exposed endpoints, status, OpenAPI docs)
//   - WebSocket gateway (multiplexed envelope frames per connection)
//   - gRPC gateway (unary Process + bidi Call streaming)
//
// Which adapters actually run is decided by configuration; registration only
// makes the factories available.
func Register(registry *component.Registry) error {
	// Nil registry is a programming error (fatal), not invalid input
	if registry == nil {
		return pkgerrors.WrapFatal(
			errors.New("registry cannot be nil"),
			"ComponentRegistry", "Register", "registry validation")
	}

	if err := httpapi.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "HTTP gateway component registration")
	}

	if err := gatewaywebsocket.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "WebSocket gateway component registration")
	}

	if err := gatewaygrpc.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "gRPC gateway component registration")
	}

	return nil
}
