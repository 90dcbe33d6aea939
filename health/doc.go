// Package health tracks the liveness of the gateway's protocol adapters and
// aggregates it for the /status route.
//
// Three levels are distinguished: healthy, degraded (serving with reduced
// capacity), and unhealthy. Aggregation is worst-case: one unhealthy adapter
// marks the whole gateway unhealthy, so problems are never masked by the
// components that still work.
//
// The Monitor is the shared table. The component runner writes lifecycle
// transitions into it (started, failed, removed on stop), a Poller refreshes
// it between transitions from each component's own Health() report, and the
// HTTP adapter reads it when serving /status:
//
//	monitor := health.NewMonitor()
//	monitor.UpdateHealthy("http-gateway", "started")
//
//	poller := health.NewPoller(monitor, source, 0, logger)
//	poller.Start(ctx)
//	defer poller.Stop()
//
//	system := monitor.AggregateHealth("gateway")
//
// Error messages entering a Status through FromComponentHealth are sanitized
// first: URLs, file paths, addresses, and credential pairs are redacted, so
// a connection failure cannot leak its connection string onto a dashboard.
//
// Status values are immutable; WithMetrics and WithSubStatus return copies.
// All Monitor methods are safe for concurrent use.
package health
