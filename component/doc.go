// Package component defines the adapter model of the gateway: how protocol
// adapters describe themselves, how they are registered and created from
// configuration, and how their lifecycle and exclusive resources are managed.
//
// An adapter is one protocol front end (HTTP, WebSocket, gRPC) for the same
// underlying flow. All adapters share one dispatcher and one endpoint
// registry, which is what keeps the served endpoint set identical across
// protocols. This package knows nothing about any specific protocol; it
// provides the contracts the adapter packages implement and the Registry
// that creates and tracks them.
//
// # Registration
//
// Factories are registered explicitly from the composition root, never via
// init() side effects. Each adapter package exports Register:
//
//	// gateway/httpapi/register.go
//	func Register(registry *component.Registry) error {
//		return registry.RegisterWithConfig(component.RegistrationConfig{
//			Name:        "http-gateway",
//			Factory:     New,
//			Schema:      httpGatewaySchema,
//			Type:        "gateway",
//			Protocol:    "http",
//			Domain:      "serving",
//			Description: "HTTP protocol adapter serving flow exec endpoints",
//			Version:     "1.0.0",
//		})
//	}
//
// and componentregistry.Register wires the built-in set into a fresh
// Registry at startup. Tests build their own registries with exactly the
// factories under test; there is no global state to reset between tests.
//
// # Creating instances
//
// CreateComponent turns raw JSON configuration into a running-ready
// adapter:
//
//	config := types.ComponentConfig{
//		Type:   types.ComponentTypeGateway,
//		Name:   "http-gateway",
//		Config: json.RawMessage(`{"host":"0.0.0.0","port":8087}`),
//	}
//	instance, err := registry.CreateComponent("http-1", config, deps)
//
// The raw config crosses four gates before the factory sees it: component
// name validation (names feed NATS subjects and URLs), structural checks
// against oversized or malicious JSON, factory lookup with a type match,
// and JSON Schema validation against the schema the factory registered.
// A config rejected at any gate fails with a classified error and no
// instance is registered.
//
// # Dependencies
//
// Factories receive their collaborators through one struct rather than a
// growing parameter list:
//
//	deps := component.Dependencies{
//		Dispatcher: dispatcher,          // required by every adapter
//		Endpoints:  endpoints,           // sealed endpoint table
//		NATSClient: nc,                  // nil for in-process flows
//		Logger:     slog.Default(),
//		Flow:       component.FlowMeta{Name: "search-flow", Version: "1.0.0"},
//	}
//
// Only the dispatcher is mandatory. NATS, metrics and the health monitor
// are optional so a gateway can front an in-process flow with no broker
// running.
//
// # Self-description
//
// Every adapter implements Discoverable: metadata, input and output ports,
// a config schema, health, and flow metrics. The status endpoints and the
// health monitor read adapters exclusively through this interface.
//
// Ports are typed. A NetworkPort is an exclusive resource; registering two
// adapters that bind the same protocol, host and port fails with a
// resource conflict at registration time instead of an EADDRINUSE at
// serve time. NATS subjects are shared resources and never conflict.
//
// # Configuration schemas
//
// Adapters declare their config schema as struct tags and generate the
// ConfigSchema once at init:
//
//	type Config struct {
//		Host string `json:"host" schema:"type:string,description:Bind address,default:0.0.0.0,category:basic"`
//		Port int    `json:"port" schema:"required,type:int,description:Listen port,min:1,max:65535,category:basic"`
//	}
//
//	var httpGatewaySchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))
//
// The same schema drives server-side validation in CreateComponent, the
// schema exporter, and form generation in clients. An adapter without a
// schema still works; its factory then carries the full validation burden.
//
// # Lifecycle
//
// Adapters additionally implement LifecycleComponent: Initialize allocates
// without I/O, Start binds listeners and serves under the given context,
// Stop shuts down within the caller's timeout. The runner in cmd/flowgate
// starts adapters in configuration order and stops them in reverse. See
// lifecycle.go for the state machine.
//
// # Errors
//
// Registry failures use the classified errors of the errors package, so
// callers branch on class instead of message text:
//
//	_, err := registry.CreateComponent("http-1", config, deps)
//	if errors.IsInvalid(err) {
//		// bad name, unknown factory, schema violation
//	}
//
// # Concurrency
//
// The Registry is safe for concurrent use. Creation, registration and the
// List methods may be called from any goroutine; List methods return
// snapshots, not live views.
package component
