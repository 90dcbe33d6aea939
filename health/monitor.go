package health

import (
	"sort"
	"sync"
	"time"
)

// Monitor is the process-wide component health table. The runner writes
// lifecycle transitions into it, the poller refreshes it from component
// self-reports, and the HTTP adapter reads it on the /status route. All
// methods are safe for concurrent use.
type Monitor struct {
	mu       sync.RWMutex
	statuses map[string]Status
}

// NewMonitor creates an empty health monitor.
func NewMonitor() *Monitor {
	return &Monitor{statuses: make(map[string]Status)}
}

// Update records the status under the given component name. The name on the
// status is forced to match the key so callers cannot desynchronize the two.
func (m *Monitor) Update(name string, status Status) {
	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}

	m.mu.Lock()
	m.statuses[name] = status
	m.mu.Unlock()
}

// UpdateHealthy records the component as healthy.
func (m *Monitor) UpdateHealthy(name, message string) {
	m.Update(name, NewHealthy(name, message))
}

// UpdateDegraded records the component as degraded.
func (m *Monitor) UpdateDegraded(name, message string) {
	m.Update(name, NewDegraded(name, message))
}

// UpdateUnhealthy records the component as unhealthy.
func (m *Monitor) UpdateUnhealthy(name, message string) {
	m.Update(name, NewUnhealthy(name, message))
}

// Get returns the tracked status for the named component.
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status, ok := m.statuses[name]
	return status, ok
}

// GetAll returns a copy of every tracked status keyed by component name.
func (m *Monitor) GetAll() map[string]Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]Status, len(m.statuses))
	for name, status := range m.statuses {
		out[name] = status
	}
	return out
}

// Remove drops the named component from tracking. Stopped components are
// removed so shutdown does not read as an outage.
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	delete(m.statuses, name)
	m.mu.Unlock()
}

// AggregateHealth folds every tracked status into one system-level status
// under the worst-case rules of Aggregate.
func (m *Monitor) AggregateHealth(systemName string) Status {
	m.mu.RLock()
	members := make([]Status, 0, len(m.statuses))
	for _, status := range m.statuses {
		members = append(members, status)
	}
	m.mu.RUnlock()

	return Aggregate(systemName, members)
}

// ListComponents returns the tracked component names, sorted.
func (m *Monitor) ListComponents() []string {
	m.mu.RLock()
	names := make([]string, 0, len(m.statuses))
	for name := range m.statuses {
		names = append(names, name)
	}
	m.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Count returns the number of tracked components.
func (m *Monitor) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.statuses)
}

// Clear drops every tracked component.
func (m *Monitor) Clear() {
	m.mu.Lock()
	m.statuses = make(map[string]Status)
	m.mu.Unlock()
}
