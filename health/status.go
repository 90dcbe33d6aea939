package health

import (
	"time"

	"github.com/c360/flowgate/component"
)

// The three health levels, ordered by severity. Aggregation always reports
// the worst level present so a single failing adapter is never masked.
const (
	LevelHealthy   = "healthy"
	LevelDegraded  = "degraded"
	LevelUnhealthy = "unhealthy"
)

// Status is one component's health at a point in time. The JSON shape is
// served verbatim on the /status route, so field names are part of the
// external surface.
type Status struct {
	Component   string    `json:"component"`
	Healthy     bool      `json:"healthy"`
	Status      string    `json:"status"` // one of the Level constants
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
	Metrics     *Metrics  `json:"metrics,omitempty"`
}

// Metrics carries the operational counters sampled alongside a status.
type Metrics struct {
	Uptime            time.Duration `json:"uptime"`
	ErrorCount        int           `json:"error_count"`
	MessagesProcessed int64         `json:"messages_processed,omitempty"`
	LastActivity      time.Time     `json:"last_activity,omitempty"`
}

// NewHealthy builds a healthy status for the named component.
func NewHealthy(componentName, message string) Status {
	return newStatus(componentName, LevelHealthy, message)
}

// NewDegraded builds a degraded status: still serving, reduced capacity.
func NewDegraded(componentName, message string) Status {
	return newStatus(componentName, LevelDegraded, message)
}

// NewUnhealthy builds an unhealthy status.
func NewUnhealthy(componentName, message string) Status {
	return newStatus(componentName, LevelUnhealthy, message)
}

func newStatus(componentName, level, message string) Status {
	return Status{
		Component: componentName,
		Healthy:   level == LevelHealthy,
		Status:    level,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// IsHealthy reports whether the status level is healthy.
func (s Status) IsHealthy() bool { return s.Status == LevelHealthy }

// IsDegraded reports whether the status level is degraded.
func (s Status) IsDegraded() bool { return s.Status == LevelDegraded }

// IsUnhealthy reports whether the status level is unhealthy.
func (s Status) IsUnhealthy() bool { return s.Status == LevelUnhealthy }

// WithMetrics returns a copy of the status carrying the given metrics.
// Status values are never mutated in place; copies keep concurrent readers
// of the monitor safe.
func (s Status) WithMetrics(metrics *Metrics) Status {
	s.Metrics = metrics
	return s
}

// WithSubStatus returns a copy with the sub-status appended. The slice is
// reallocated so the original and the copy never share a backing array.
func (s Status) WithSubStatus(sub Status) Status {
	subs := make([]Status, len(s.SubStatuses), len(s.SubStatuses)+1)
	copy(subs, s.SubStatuses)
	s.SubStatuses = append(subs, sub)
	return s
}

// Aggregate folds component statuses into one system-level status under
// worst-case rules: any unhealthy member makes the system unhealthy, any
// degraded member (without an unhealthy one) makes it degraded. The members
// are attached as sub-statuses for drill-down.
func Aggregate(systemName string, members []Status) Status {
	if len(members) == 0 {
		return NewHealthy(systemName, "No sub-components to aggregate")
	}

	level, message := LevelHealthy, "All sub-components are healthy"
	for _, member := range members {
		if member.IsUnhealthy() {
			level, message = LevelUnhealthy, "One or more sub-components are unhealthy"
			break
		}
		if member.IsDegraded() {
			level, message = LevelDegraded, "One or more sub-components are degraded"
		}
	}

	agg := newStatus(systemName, level, message)
	agg.SubStatuses = make([]Status, len(members))
	copy(agg.SubStatuses, members)
	return agg
}

// FromComponentHealth converts an adapter's self-reported health into a
// monitor status. Error text is sanitized before it can reach the /status
// payload or a dashboard.
func FromComponentHealth(name string, ch component.HealthStatus) Status {
	level := LevelUnhealthy
	if ch.Healthy {
		level = LevelHealthy
	}

	message := "Component healthy"
	if ch.LastError != "" {
		message = sanitizeMessage(ch.LastError)
	}

	status := newStatus(name, level, message)
	status.Metrics = &Metrics{
		Uptime:       ch.Uptime,
		ErrorCount:   ch.ErrorCount,
		LastActivity: ch.LastCheck,
	}
	return status
}
