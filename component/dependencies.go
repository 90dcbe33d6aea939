package component

import (
	"log/slog"

	"github.com/c360/flowgate/dispatch"
	"github.com/c360/flowgate/endpoint"
	"github.com/c360/flowgate/metric"
	"github.com/c360/flowgate/natsclient"
	"github.com/c360/flowgate/types"
)

// FlowMeta identifies the flow a gateway instance fronts.
// Type alias to avoid import cycles while maintaining compatibility.
type FlowMeta = types.FlowMeta

// Dependencies provides all external dependencies needed by components.
// Every protocol adapter receives the same dispatcher and endpoint registry,
// which is what keeps the served endpoint set identical across protocols.
type Dependencies struct {
	NATSClient      *natsclient.Client      // NATS client for messaging (can be nil when the flow runs in-process)
	Dispatcher      *dispatch.Dispatcher    // Shared request dispatcher (required for protocol adapters)
	Endpoints       *endpoint.Registry      // Sealed exec endpoint registry shared by all adapters
	HealthMonitor   any                     // Health monitor for status aggregation (type: *health.Monitor, can be nil)
	MetricsRegistry *metric.MetricsRegistry // Metrics registry for Prometheus (can be nil)
	Logger          *slog.Logger            // Structured logger (can be nil, defaults to slog.Default())
	Flow            FlowMeta                // Identity of the fronted flow (name and version)

	// PipelinePorts describes the outbound resources the shared dispatcher
	// occupies on behalf of every adapter (the flow request subjects and
	// the cancellation fan-out). The host process declares them once and
	// each adapter reports them as its output ports.
	PipelinePorts []Port
}

// GetLogger returns the configured logger or a default logger if none is provided
func (d *Dependencies) GetLogger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// GetLoggerWithComponent returns a logger configured with component context
func (d *Dependencies) GetLoggerWithComponent(componentName string) *slog.Logger {
	return d.GetLogger().With("component", componentName)
}
