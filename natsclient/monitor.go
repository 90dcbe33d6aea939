package natsclient

import (
	"time"
)

// OnHealthChange registers a callback invoked whenever the observed health
// flips. The gateway feeds its readiness probe through this.
func (c *Client) OnHealthChange(fn func(bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onHealthChange = fn
}

// WithHealthCheck sets the probe interval on an existing client. Connect
// picks the value up when it starts the probe loop.
func (c *Client) WithHealthCheck(interval time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.healthInterval = interval
}

// startHealthProbe launches the RTT sampling loop. Calling it again
// replaces a running loop.
func (c *Client) startHealthProbe() {
	c.stopHealthProbe()

	c.mu.Lock()
	c.probeTicker = time.NewTicker(c.healthInterval)
	c.probeStop = make(chan struct{})
	ticker, stop := c.probeTicker, c.probeStop
	c.mu.Unlock()

	go c.probeLoop(ticker, stop)
}

// stopHealthProbe tears down the probe loop if one is running.
func (c *Client) stopHealthProbe() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.probeTicker != nil {
		c.probeTicker.Stop()
		c.probeTicker = nil
	}
	if c.probeStop != nil {
		close(c.probeStop)
		c.probeStop = nil
	}
}

// probeLoop samples the connection on every tick, keeps the status in sync
// with what the probe sees, and reports flips through the health callback.
func (c *Client) probeLoop(ticker *time.Ticker, stop chan struct{}) {
	defer ticker.Stop()

	wasHealthy := c.IsHealthy()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			conn := c.GetConnection()
			if conn == nil {
				// Nothing to probe yet; leave the status alone.
				continue
			}

			healthy := conn.IsConnected()
			if rtt, err := conn.RTT(); err != nil {
				healthy = false
			} else if c.metrics != nil {
				c.metrics.RecordNATSRTT(rtt)
			}

			switch {
			case healthy && c.Status() != StatusConnected:
				c.setStatus(StatusConnected)
			case !healthy && c.Status() == StatusConnected:
				c.setStatus(StatusReconnecting)
			}

			if healthy != wasHealthy {
				c.mu.RLock()
				notify := c.onHealthChange
				c.mu.RUnlock()
				if notify != nil {
					notify(healthy)
				}
			}
			wasHealthy = healthy
		}
	}
}
