// Package config provides configuration management for the flowgate gateway.
//
// This package handles loading, merging, and validation of gateway
// configuration from JSON files and environment variables.
//
// # Core Components
//
// Config: Main configuration structure containing the flow identity and
// topology, NATS connection details, logging and metrics settings, endpoint
// exposure policy, and protocol adapter definitions.
//
// SafeConfig: Thread-safe wrapper using RWMutex and deep cloning to prevent
// concurrent access issues and accidental mutations.
//
// Loader: Loads configuration with layer merging (base + overrides) and
// environment variable substitution for flexible deployment scenarios.
//
// # Basic Usage
//
// Loading configuration from files with layer merging:
//
//	loader := config.NewLoader()
//	loader.AddLayer("config/base.json")
//	loader.AddLayer("config/production.json") // Overrides base
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Thread-Safe Access
//
// SafeConfig ensures thread-safe access to configuration:
//
//	safeConfig := config.NewSafeConfig(cfg)
//
//	// Read config (deep copy returned, safe to use)
//	cfg := safeConfig.Get()
//
//	// Replace config atomically; the new config is validated first
//	if err := safeConfig.Update(newCfg); err != nil {
//		log.Printf("rejected config update: %v", err)
//	}
//
// # Environment Variable Overrides
//
// Configuration values can be overridden using environment variables:
//
//	# Override the flow name
//	export FLOWGATE_FLOW_NAME="prod-search-flow"
//
//	# Override the inline flow graph
//	export FLOWGATE_FLOW_GRAPH='{"start-gateway": ["exec0"], "exec0": ["end-gateway"]}'
//
//	# Override NATS URLs (comma-separated)
//	export FLOWGATE_NATS_URLS="nats://server1:4222,nats://server2:4222"
//
//	# Override log settings
//	export FLOWGATE_LOG_LEVEL="debug"
//
// # Layer Merging
//
// Configuration layers are merged with last-wins semantics:
//
//	base.json:
//	  {"flow": {"name": "dev-flow"}, "log": {"level": "debug"}}
//
//	production.json:
//	  {"flow": {"name": "prod-flow"}}
//
//	Result:
//	  {"flow": {"name": "prod-flow"}, "log": {"level": "debug"}}
//
// # Durations
//
// Duration fields accept Go duration strings in JSON ("30s", "2m") as well
// as raw nanosecond numbers, so hand-written files and files saved with
// SaveToFile both load correctly.
//
// # Security
//
// The package includes security validation:
//   - File size limits (10MB max) to prevent memory exhaustion
//   - JSON depth validation (100 levels max) to prevent DoS attacks
//   - Path validation to prevent directory traversal
//   - Regular file checks (no symlinks or device files)
//   - Environment values rejected when oversized or containing null bytes
//
// # Configuration Structure
//
// The main Config struct contains:
//
//	type Config struct {
//	    Version    string           // Semantic version of this config
//	    Flow       FlowConfig       // Flow identity and executor topology
//	    NATS       NATSConfig       // Message bus connection
//	    Log        LogConfig        // Structured logging settings
//	    Metrics    MetricsConfig    // Prometheus endpoint settings
//	    Endpoints  EndpointsConfig  // Endpoint exposure policy
//	    Components ComponentConfigs // Protocol adapter instances
//	}
//
// See example_config.json in this directory for a complete gateway
// configuration serving one flow over HTTP, gRPC, and WebSocket.
package config
