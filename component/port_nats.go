package component

import "fmt"

// NATSPort declares a publish/subscribe subject. The gateway process uses
// one to describe the cancellation fan-out subject its dispatcher publishes
// on; pipeline workers subscribe to the same subject non-exclusively.
type NATSPort struct {
	Subject string `json:"subject"`
	Queue   string `json:"queue,omitempty"`
	// Interface names the message contract carried on the subject,
	// e.g. "envelope.Envelope".
	Interface string `json:"interface,omitempty"`
}

// ResourceID identifies the subject for discovery and conflict tracking.
// The queue group is deliberately excluded: two subscriptions on the same
// subject are the same resource whether or not they share a queue.
func (n NATSPort) ResourceID() string {
	return fmt.Sprintf("nats:%s", n.Subject)
}

// IsExclusive reports false: any number of components may share a subject.
func (n NATSPort) IsExclusive() bool {
	return false
}

// Type returns the wire tag used when ports are serialized.
func (n NATSPort) Type() string {
	return "nats"
}

// NATSRequestPort declares a request/reply subject with its timing
// expectations. The gateway's outbound pipeline hand-off is declared this
// way: the request goes out on the flow subject space and the reply
// carries the processed envelope back.
type NATSRequestPort struct {
	Subject string `json:"subject"`
	// Timeout is the reply deadline as a duration string, e.g. "30s".
	Timeout string `json:"timeout,omitempty"`
	// Retries is how many times the requester re-issues after a transient
	// delivery failure.
	Retries   int    `json:"retries,omitempty"`
	Interface string `json:"interface,omitempty"`
}

// ResourceID identifies the request subject for discovery and tracking.
func (n NATSRequestPort) ResourceID() string {
	return fmt.Sprintf("nats-request:%s", n.Subject)
}

// IsExclusive reports false: multiple requesters may share the subject.
func (n NATSRequestPort) IsExclusive() bool {
	return false
}

// Type returns the wire tag used when ports are serialized.
func (n NATSRequestPort) Type() string {
	return "nats-request"
}
