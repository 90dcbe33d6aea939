// Package flowgate provides a protocol-agnostic serving gateway that fronts
// a data-processing flow with HTTP, WebSocket, and gRPC adapters sharing one
// envelope model and one dispatch core.
//
// # Philosophy: One Envelope, Many Transports
//
// Flowgate separates how a request arrives from what happens to it. Every
// transport adapter decodes its wire format into the same canonical envelope,
// hands it to the same dispatcher, and encodes the same response envelope
// back out. Adding a transport never touches pipeline semantics; changing
// pipeline semantics never touches a transport.
//
//	┌──────────┐  ┌───────────┐  ┌──────────┐
//	│   HTTP   │  │ WebSocket │  │   gRPC   │   protocol adapters
//	│ adapter  │  │  adapter  │  │ adapter  │   (gateway/*)
//	└────┬─────┘  └─────┬─────┘  └────┬─────┘
//	     │              │             │
//	     └──────────────┼─────────────┘
//	                    ↓
//	          ┌──────────────────┐
//	          │    Envelope      │   canonical request/response
//	          │ (header, routes, │   model with execution trace
//	          │  request, resp)  │
//	          └────────┬─────────┘
//	                   ↓
//	          ┌──────────────────┐
//	          │   Dispatcher     │   endpoint validation,
//	          │  (dispatch core) │   trace bracketing, cancel
//	          └────────┬─────────┘
//	                   ↓
//	          ┌──────────────────┐
//	          │  Flow Invoker    │   NATS request/reply to
//	          │  (flow package)  │   pipeline workers
//	          └──────────────────┘
//
// # Request Lifecycle
//
// Every request follows the same path regardless of transport:
//
//  1. The adapter decodes the wire payload into an envelope, or builds one
//     from URL/metadata for bare requests.
//  2. The dispatcher validates the endpoint against the sealed registry and
//     opens the gateway route entry.
//  3. The flow invoker submits the envelope to the pipeline over NATS
//     request/reply and waits under the request context.
//  4. Pipeline stages append their own route entries as they execute.
//  5. The dispatcher closes the gateway route entry with the final status
//     and hands the envelope back to the adapter for encoding.
//
// Failures stay in-band: unknown endpoints, pipeline errors, timeouts, and
// cancellations become an error status in the envelope header, not a
// transport-level fault. The transport only fails when the request itself
// was malformed.
//
// # Cancellation
//
// Client disconnects propagate. Each WebSocket connection and gRPC stream
// owns a session that tracks its in-flight requests; closing the session
// cancels every outstanding context, and the dispatcher broadcasts the
// cancellation to pipeline workers on the cancel subject so abandoned work
// stops early.
//
// # Framework Packages
//
// Serving surface:
//   - gateway/httpapi: HTTP adapter (REST-shaped, bare and enveloped)
//   - gateway/websocket: WebSocket adapter with per-connection sessions
//   - gateway/grpc: gRPC adapter (unary and bidirectional streaming)
//   - endpoint: sealed endpoint registry and default categories
//   - envelope: canonical envelope model and execution trace
//
// Dispatch core:
//   - dispatch: transport-neutral dispatcher
//   - flow: pipeline topology and NATS-backed invoker
//   - session: per-connection request tracking and cancellation
//
// Component system:
//   - component: lifecycle contract, ports, registry, config validation
//   - componentregistry: registration of the built-in adapters
//   - types: component metadata shared across packages
//
// Infrastructure:
//   - natsclient: managed NATS connection with circuit breaker
//   - config: configuration loading and validation
//   - metric: Prometheus metrics registry and serving
//   - health: component health monitoring
//   - errors: classified error handling
//
// # Usage
//
// Serving a flow:
//
//	# Serve with a config file
//	./bin/flowgate --config configs/gateway.json
//
//	# Validate configuration without serving
//	./bin/flowgate --config configs/gateway.json --validate
//
// Embedding the dispatch core:
//
//	registry := endpoint.NewRegistry()
//	registry.Register(endpoint.Descriptor{Name: "/index", Exposed: true})
//	registry.Seal()
//
//	invoker, _ := flow.NewNATSInvoker(natsClient, flow.NATSInvokerConfig{}, logger)
//	dispatcher, _ := dispatch.New(dispatch.Deps{
//	    Registry: registry,
//	    Invoker:  invoker,
//	    Logger:   logger,
//	})
//
//	env := envelope.New("/index")
//	result, err := dispatcher.Dispatch(ctx, env)
//
// # Design Principles
//
// Transport neutrality:
//   - Adapters translate, the dispatcher decides
//   - One envelope model on every wire
//   - In-band errors so every transport reports failures the same way
//
// Explicit lifecycle:
//   - Initialize, Start, Stop on every adapter
//   - Context checks before binding, idempotent shutdown
//   - Conformance suite shared by all adapters
//
// Testability:
//   - Explicit dependencies (no globals)
//   - In-process invoker for transport tests
//   - Integration tests against real NATS via testcontainers
package flowgate
