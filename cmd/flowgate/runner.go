package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/flowgate/component"
	"github.com/c360/flowgate/health"
)

// componentRunner drives the lifecycle of the configured gateway instances:
// create, initialize, concurrent start, reverse-order stop. Gateways are
// independent listeners, so starting them concurrently is safe; the first
// start failure aborts the group and rolls back whatever already started.
type componentRunner struct {
	logger  *slog.Logger
	monitor *health.Monitor

	order      []string // insertion order, walked backwards on stop
	components map[string]*component.ManagedComponent
}

func newComponentRunner(logger *slog.Logger, monitor *health.Monitor) *componentRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &componentRunner{
		logger:     logger,
		monitor:    monitor,
		components: make(map[string]*component.ManagedComponent),
	}
}

// add initializes the component and tracks it for start/stop.
func (r *componentRunner) add(name string, comp component.Discoverable) error {
	if _, exists := r.components[name]; exists {
		return fmt.Errorf("component %q already managed", name)
	}

	mc := &component.ManagedComponent{
		Component:  comp,
		State:      component.StateCreated,
		StartOrder: len(r.order),
	}

	if lc, ok := component.AsLifecycleComponent(comp); ok {
		if err := lc.Initialize(); err != nil {
			mc.State = component.StateFailed
			mc.LastError = err
			return fmt.Errorf("initialize component %q: %w", name, err)
		}
		mc.State = component.StateInitialized
	}

	r.order = append(r.order, name)
	r.components[name] = mc
	return nil
}

// managedNames returns the instance names in start order.
func (r *componentRunner) managedNames() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// componentHealth samples the self-reported health of every started
// component. The health poller calls this between lifecycle transitions; the
// poller is stopped before stopAll runs, so the states read here are stable.
func (r *componentRunner) componentHealth() map[string]component.HealthStatus {
	out := make(map[string]component.HealthStatus, len(r.order))
	for _, name := range r.order {
		mc := r.components[name]
		if mc.State == component.StateStarted && mc.Component != nil {
			out[name] = mc.Component.Health()
		}
	}
	return out
}

// startAll starts every managed component concurrently. Each component gets
// its own child context stored on the ManagedComponent so it can be signalled
// individually during shutdown. A start failure stops the components that
// made it up before the error is returned.
func (r *componentRunner) startAll(ctx context.Context) error {
	var g errgroup.Group

	for _, name := range r.order {
		mc := r.components[name]
		lc, ok := component.AsLifecycleComponent(mc.Component)
		if !ok {
			continue
		}

		childCtx, cancel := context.WithCancel(ctx)
		mc.Context = childCtx
		mc.Cancel = cancel

		g.Go(func() error {
			r.logger.Info("Starting component",
				"name", name, "type", mc.Component.Meta().Type)

			if err := lc.Start(mc.Context); err != nil {
				mc.State = component.StateFailed
				mc.LastError = err
				if r.monitor != nil {
					r.monitor.UpdateUnhealthy(name, err.Error())
				}
				return fmt.Errorf("start component %q: %w", name, err)
			}

			mc.State = component.StateStarted
			if r.monitor != nil {
				r.monitor.UpdateHealthy(name, "started")
			}
			r.logger.Info("Component started", "name", name)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if stopErr := r.stopAll(5 * time.Second); stopErr != nil {
			r.logger.Error("Rollback after failed start reported errors", "error", stopErr)
		}
		return err
	}
	return nil
}

// stopAll stops components in reverse start order, sharing one timeout budget:
// each component gets what remains of it. Contexts are cancelled up front to
// signal shutdown intent before the graceful stops begin.
func (r *componentRunner) stopAll(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for i := len(r.order) - 1; i >= 0; i-- {
		mc := r.components[r.order[i]]
		if mc.Cancel != nil {
			mc.Cancel()
			mc.Cancel = nil
			mc.Context = nil
		}
	}

	var errs []error
	for i := len(r.order) - 1; i >= 0; i-- {
		name := r.order[i]
		mc := r.components[name]

		lc, ok := component.AsLifecycleComponent(mc.Component)
		if !ok || mc.State != component.StateStarted {
			continue
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			remaining = time.Second
		}

		r.logger.Info("Stopping component", "name", name, "timeout", remaining)
		if err := lc.Stop(remaining); err != nil {
			mc.State = component.StateFailed
			mc.LastError = err
			errs = append(errs, fmt.Errorf("stop component %q: %w", name, err))
			continue
		}

		mc.State = component.StateStopped
		if r.monitor != nil {
			r.monitor.Remove(name)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to stop %d components: %v", len(errs), errs)
	}
	return nil
}
