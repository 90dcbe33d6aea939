// Package gateway provides the protocol adapter layer of the serving gateway.
//
// Adapter components let external clients (HTTP, WebSocket, gRPC) submit
// requests to the fronted flow using request/reply semantics. Every adapter
// serves the same endpoint set through the same dispatcher, so the protocol a
// client picks never changes what the flow sees.
//
// # Architecture
//
// Adapters translate between their wire protocol and the canonical envelope,
// then hand off to the shared dispatcher:
//
//	┌──────────────┐  ┌──────────────────┐  ┌──────────────┐
//	│  HTTP Client │  │ WebSocket Client │  │  gRPC Client │
//	└──────┬───────┘  └────────┬─────────┘  └──────┬───────┘
//	       ↓                   ↓                   ↓
//	┌─────────────────────────────────────────────────────┐
//	│  Protocol adapters (gateway/httpapi, /websocket,    │
//	│  /grpc): decode frames into envelopes               │
//	└──────────────────────────┬──────────────────────────┘
//	                           ↓
//	┌─────────────────────────────────────────────────────┐
//	│  dispatch.Dispatcher → flow invoker (NATS or local) │
//	└─────────────────────────────────────────────────────┘
//
// # Protocol Support
//
// Adapter implementations by protocol:
//
//   - HTTP: route table derived from exposed endpoints (gateway/httpapi)
//   - WebSocket: multiplexed envelope frames per connection (gateway/websocket)
//   - gRPC: bidi Call stream and unary Process (gateway/grpc)
//
// # Endpoint Exposure
//
// The HTTP adapter builds its route table from the exposed subset of the
// endpoint registry; WebSocket and gRPC address the full registry because
// their clients name the exec endpoint inside the envelope. Exposure settings
// are therefore an HTTP surface concern only.
//
// # Shared Configuration Rules
//
// This package holds the bounds every adapter config applies: request timeout
// range, body size limits, CORS origin policy, and TLS settings checks. Each
// adapter declares its own flat config struct and calls these helpers from its
// Validate method.
//
// # Example Configuration
//
//	{
//	  "components": {
//	    "http-main": {
//	      "type": "gateway",
//	      "name": "http-gateway",
//	      "enabled": true,
//	      "config": {
//	        "host": "0.0.0.0",
//	        "port": 8087,
//	        "enable_cors": true,
//	        "cors_origins": ["http://localhost:3000"]
//	      }
//	    }
//	  }
//	}
//
// # Usage
//
// With the above configuration, external clients can reach the flow via HTTP:
//
//	# Search through the flow
//	curl -X POST http://localhost:8087/search \
//	  -H "Content-Type: application/json" \
//	  -d '{"data": [{"text": "hello"}]}'
//
//	# Liveness and component health
//	curl http://localhost:8087/status
//
// # Security
//
// Adapters support:
//   - CORS headers with explicit origin allow-lists (HTTP)
//   - Request timeout and body size limits
//   - TLS termination on every listener, with optional mutual TLS via a
//     client CA bundle (pkg/tlsutil)
//   - Per-connection message rate limiting (WebSocket)
package gateway
