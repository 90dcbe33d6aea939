package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/c360/flowgate/component"
)

// DefaultPollInterval is used when a poller is built with no interval.
const DefaultPollInterval = 10 * time.Second

// Source reports the self-assessed health of the currently live components,
// keyed by instance name. The runner exposes its managed set through this.
type Source func() map[string]component.HealthStatus

// Poller refreshes the monitor from component self-reports on a fixed
// interval. Lifecycle transitions reach the monitor immediately through the
// runner; the poller keeps the picture current between transitions, picking
// up error counts and components that went sideways without failing Start.
type Poller struct {
	monitor  *Monitor
	source   Source
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a poller over the given monitor and component source.
// A zero interval selects DefaultPollInterval; a nil logger selects the
// default logger.
func NewPoller(monitor *Monitor, source Source, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		monitor:  monitor,
		source:   source,
		interval: interval,
		logger:   logger,
	}
}

// Start samples once immediately, then resamples on the interval until ctx
// is cancelled or Stop is called. Starting a running poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	p.sample()
	go p.run(runCtx, p.done)

	p.logger.Debug("health poller started", "interval", p.interval)
}

// Stop halts sampling and waits for the loop to exit. Safe to call on a
// poller that never started.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sample()
		}
	}
}

func (p *Poller) sample() {
	for name, hs := range p.source() {
		p.monitor.Update(name, FromComponentHealth(name, hs))
	}
}
