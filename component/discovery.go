package component

import (
	"time"
)

// Discoverable is the inspection contract every component meets. In a
// gateway process the components are protocol adapters: each binds a
// listener (HTTP, WebSocket, gRPC) and serves the shared endpoint set
// through the dispatcher. The status surface and the health monitor read
// everything they report through this interface.
type Discoverable interface {
	// Meta identifies the component.
	Meta() Metadata

	// InputPorts lists the ports data arrives on.
	InputPorts() []Port

	// OutputPorts lists the ports data leaves on.
	OutputPorts() []Port

	// ConfigSchema declares the accepted configuration.
	ConfigSchema() ConfigSchema

	// Health reports the component's current condition.
	Health() HealthStatus

	// DataFlow reports current throughput.
	DataFlow() FlowMetrics
}

// Metadata identifies a component.
type Metadata struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // "gateway"
	Description string `json:"description"`
	Version     string `json:"version"`
}

// ConfigSchema declares a component's configuration surface.
type ConfigSchema struct {
	Properties map[string]PropertySchema `json:"properties"`
	Required   []string                  `json:"required"`
}

// PropertySchema declares one configuration property.
type PropertySchema struct {
	Type        string   `json:"type"` // string, int, bool, float, enum, array, object
	Description string   `json:"description"`
	Default     any      `json:"default,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Minimum     *int     `json:"minimum,omitempty"`
	Maximum     *int     `json:"maximum,omitempty"`
	// Category groups properties for presentation: basic, advanced,
	// security, or limits.
	Category string `json:"category,omitempty"`
}

// HealthStatus is a component's self-reported condition.
type HealthStatus struct {
	Healthy    bool          `json:"healthy"`
	LastCheck  time.Time     `json:"last_check"`
	ErrorCount int           `json:"error_count"`
	LastError  string        `json:"last_error,omitempty"`
	Uptime     time.Duration `json:"uptime"`
}

// FlowMetrics is a component's self-reported throughput.
type FlowMetrics struct {
	MessagesPerSecond float64   `json:"messages_per_second"`
	BytesPerSecond    float64   `json:"bytes_per_second"`
	ErrorRate         float64   `json:"error_rate"`
	LastActivity      time.Time `json:"last_activity"`
}
