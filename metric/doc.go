// Package metric provides Prometheus-based metrics collection for the
// gateway and its transport adapters.
//
// The package offers a centralized metrics registry managing both core
// gateway metrics (component status, request counts, dispatch latency,
// NATS health) and adapter-specific metrics. Metrics can be served from
// a standalone HTTP server or mounted onto an existing mux via Handler.
//
// # Architecture
//
// The package follows a three-layer design:
//
//  1. Core Metrics: gateway-level metrics automatically registered (Metrics type)
//  2. Component Registry: extensible registration for adapter-specific metrics (MetricsRegistrar interface)
//  3. HTTP Exposure: standalone Server, or Handler for mounting on the HTTP adapter
//
// # Basic Usage
//
// Setting up metrics collection and a standalone server:
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//
//	go func() {
//	    if err := server.Start(); err != nil {
//	        log.Printf("Metrics server error: %v", err)
//	    }
//	}()
//
//	coreMetrics := registry.CoreMetrics()
//	coreMetrics.RecordComponentStatus("http-gateway", 2)
//	coreMetrics.RecordRequestReceived("http-gateway", "/index")
//	coreMetrics.RecordRequestCompleted("http-gateway", "/index", "success")
//
// # Core Metrics
//
// Core metrics use the namespace "flowgate":
//
//   - flowgate_component_status{component} (0=stopped, 1=starting, 2=running, 3=stopping)
//   - flowgate_requests_received_total{component, endpoint}
//   - flowgate_requests_completed_total{component, endpoint, status}
//   - flowgate_dispatch_duration_seconds{endpoint}
//   - flowgate_errors_total{component, type}
//   - flowgate_health_status{component}
//   - flowgate_sessions_open{component}
//   - flowgate_sessions_in_flight_requests{component}
//   - flowgate_nats_connection_status, flowgate_nats_rtt_seconds,
//     flowgate_nats_reconnects_total, flowgate_nats_circuit_breaker_state
//
// # Adapter-Specific Metrics
//
// Components register custom metrics through the MetricsRegistrar
// interface, which enables testing with mock registrars:
//
//	framesDecoded := prometheus.NewCounter(prometheus.CounterOpts{
//	    Namespace: "flowgate",
//	    Subsystem: "websocket",
//	    Name:      "frames_decoded_total",
//	    Help:      "Total number of wire frames decoded into envelopes",
//	})
//	err := registrar.RegisterCounter("websocket-gateway", "frames_decoded_total", framesDecoded)
//
// Registration fails for duplicate (component, metric) pairs and for
// Prometheus-level name conflicts. Unregister removes a single metric.
//
// # Thread Safety
//
// All registry operations are thread-safe. Metric recording is lock-free
// (Prometheus guarantee) and CoreMetrics() returns a shared instance safe
// for concurrent use.
package metric
