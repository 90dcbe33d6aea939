package natsclient

import (
	"sync/atomic"
	"time"
)

// Circuit states as reported to the metrics gauge.
const (
	circuitClosed   = 0
	circuitOpen     = 1
	circuitHalfOpen = 2
)

// breaker counts connection failures and tracks the pause before the next
// probe. It is deliberately dumb: the Client owns status transitions,
// logging and metrics, the breaker only keeps the numbers.
type breaker struct {
	threshold int32         // failures per round before the circuit trips
	ceiling   time.Duration // upper bound on the probe pause

	total atomic.Int32 // failures since the last reset, surfaced in Status
	round atomic.Int32 // failures in the current round
	pause atomic.Int64 // nanoseconds to wait before the next probe
	last  atomic.Value // time.Time of the most recent failure
}

func newBreaker(threshold int32, ceiling time.Duration) *breaker {
	b := &breaker{threshold: threshold, ceiling: ceiling}
	b.pause.Store(int64(time.Second))
	b.last.Store(time.Time{})
	return b
}

// fail records one failure and reports whether the current round just
// reached the threshold, meaning the caller must trip the circuit.
func (b *breaker) fail() bool {
	b.total.Add(1)
	b.last.Store(time.Now())
	return b.round.Add(1) >= b.threshold
}

// widen ends the current round: it returns the pause to apply now and
// stores the doubled value, capped at the ceiling, for the next round.
func (b *breaker) widen() time.Duration {
	cur := time.Duration(b.pause.Load())
	next := cur * 2
	if next > b.ceiling {
		next = b.ceiling
	}
	b.pause.Store(int64(next))
	b.round.Store(0)
	return cur
}

// reset wipes the failure history after a successful connection.
func (b *breaker) reset() {
	b.total.Store(0)
	b.round.Store(0)
	b.pause.Store(int64(time.Second))
	b.last.Store(time.Time{})
}

func (b *breaker) count() int32 {
	return b.total.Load()
}

func (b *breaker) wait() time.Duration {
	return time.Duration(b.pause.Load())
}

func (b *breaker) lastFailure() time.Time {
	return b.last.Load().(time.Time)
}

// recordFailure counts one failed connection attempt. When the round
// reaches the threshold the circuit opens and a probe is scheduled after
// the current pause; while the circuit stays open each further round only
// widens the pause.
func (c *Client) recordFailure() {
	if !c.breaker.fail() {
		return
	}

	cur := c.Status()
	if cur == StatusCircuitOpen {
		c.logger.Warn("Circuit still open after another failure round",
			"pause", c.breaker.widen())
		return
	}

	// Only one of the racing goroutines trips the circuit and schedules
	// the probe.
	if !c.status.CompareAndSwap(int32(cur), int32(StatusCircuitOpen)) {
		return
	}

	pause := c.breaker.widen()
	c.logger.Warn("Circuit opened",
		"failures", c.breaker.count(), "pause", pause)

	if c.metrics != nil {
		c.metrics.RecordNATSStatus(false)
		c.metrics.RecordCircuitBreakerState(circuitOpen)
	}

	time.AfterFunc(pause, c.probeCircuit)
}

// resetCircuit clears the failure history. A successful connect calls
// this; an open circuit drops back to disconnected, a live connection
// keeps its status.
func (c *Client) resetCircuit() {
	c.breaker.reset()

	if c.metrics != nil {
		c.metrics.RecordCircuitBreakerState(circuitClosed)
	}

	if c.Status() == StatusCircuitOpen {
		c.setStatus(StatusDisconnected)
	}
}

// probeCircuit fires when the pause elapses. It half-opens the circuit by
// dropping back to disconnected so a single Connect attempt can go
// through; if that attempt fails the next, longer round begins.
func (c *Client) probeCircuit() {
	if c.Status() != StatusCircuitOpen {
		return
	}

	c.logger.Debug("Circuit half-open, allowing a connection attempt")
	if c.metrics != nil {
		c.metrics.RecordCircuitBreakerState(circuitHalfOpen)
	}
	c.setStatus(StatusDisconnected)
}
