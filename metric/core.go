package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all gateway-level metrics (not adapter-specific)
type Metrics struct {
	// Component metrics
	ComponentStatus   *prometheus.GaugeVec
	RequestsReceived  *prometheus.CounterVec
	RequestsCompleted *prometheus.CounterVec
	DispatchDuration  *prometheus.HistogramVec
	ErrorsTotal       *prometheus.CounterVec
	HealthCheckStatus *prometheus.GaugeVec

	// Session metrics
	OpenSessions     *prometheus.GaugeVec
	InFlightRequests *prometheus.GaugeVec

	// NATS metrics
	NATSConnected      prometheus.Gauge
	NATSRTT            prometheus.Gauge
	NATSReconnects     prometheus.Counter
	NATSCircuitBreaker prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all gateway metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ComponentStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "flowgate",
				Subsystem: "component",
				Name:      "status",
				Help:      "Component status (0=stopped, 1=starting, 2=running, 3=stopping, 4=failed)",
			},
			[]string{"component"},
		),

		RequestsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flowgate",
				Subsystem: "requests",
				Name:      "received_total",
				Help:      "Total number of requests received",
			},
			[]string{"component", "endpoint"},
		),

		RequestsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flowgate",
				Subsystem: "requests",
				Name:      "completed_total",
				Help:      "Total number of requests completed",
			},
			[]string{"component", "endpoint", "status"},
		),

		DispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "flowgate",
				Subsystem: "dispatch",
				Name:      "duration_seconds",
				Help:      "End-to-end dispatch duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "flowgate",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"component", "type"},
		),

		HealthCheckStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "flowgate",
				Subsystem: "health",
				Name:      "status",
				Help:      "Health check status (0=unhealthy, 1=healthy)",
			},
			[]string{"component"},
		),

		OpenSessions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "flowgate",
				Subsystem: "sessions",
				Name:      "open",
				Help:      "Number of open streaming sessions",
			},
			[]string{"component"},
		),

		InFlightRequests: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "flowgate",
				Subsystem: "sessions",
				Name:      "in_flight_requests",
				Help:      "Number of dispatched requests not yet completed",
			},
			[]string{"component"},
		),

		// NATS metrics
		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "flowgate",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSRTT: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "flowgate",
				Subsystem: "nats",
				Name:      "rtt_milliseconds",
				Help:      "NATS round-trip time in milliseconds",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "flowgate",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),

		NATSCircuitBreaker: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "flowgate",
				Subsystem: "nats",
				Name:      "circuit_breaker",
				Help:      "NATS circuit breaker status (0=closed, 1=open, 2=half-open)",
			},
		),
	}
}

// RecordComponentStatus updates component status metric
func (c *Metrics) RecordComponentStatus(component string, status int) {
	c.ComponentStatus.WithLabelValues(component).Set(float64(status))
}

// RecordRequestReceived increments the received request counter
func (c *Metrics) RecordRequestReceived(component, endpoint string) {
	c.RequestsReceived.WithLabelValues(component, endpoint).Inc()
}

// RecordRequestCompleted increments the completed request counter
func (c *Metrics) RecordRequestCompleted(component, endpoint, status string) {
	c.RequestsCompleted.WithLabelValues(component, endpoint, status).Inc()
}

// RecordDispatchDuration records end-to-end dispatch time
func (c *Metrics) RecordDispatchDuration(endpoint string, duration time.Duration) {
	c.DispatchDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordError increments error counter
func (c *Metrics) RecordError(component, errorType string) {
	c.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordHealthStatus updates health check status
func (c *Metrics) RecordHealthStatus(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	c.HealthCheckStatus.WithLabelValues(component).Set(value)
}

// RecordOpenSessions updates the open session gauge
func (c *Metrics) RecordOpenSessions(component string, count int) {
	c.OpenSessions.WithLabelValues(component).Set(float64(count))
}

// RecordInFlightRequests updates the in-flight request gauge
func (c *Metrics) RecordInFlightRequests(component string, count int) {
	c.InFlightRequests.WithLabelValues(component).Set(float64(count))
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.NATSConnected.Set(value)
}

// RecordNATSRTT updates NATS round-trip time
func (c *Metrics) RecordNATSRTT(rtt time.Duration) {
	c.NATSRTT.Set(float64(rtt.Milliseconds()))
}

// RecordNATSReconnect increments reconnection counter
func (c *Metrics) RecordNATSReconnect() {
	c.NATSReconnects.Inc()
}

// RecordCircuitBreakerState updates circuit breaker status
func (c *Metrics) RecordCircuitBreakerState(state int) {
	c.NATSCircuitBreaker.Set(float64(state))
}
