// Package flow connects the gateway to its processing pipeline. It defines
// the flow topology (the executor graph rooted at start-gateway and the
// deployed executor addresses) and two pipeline invokers behind the
// dispatch.Invoker contract:
//
//   - NATSInvoker submits envelopes to remote workers over NATS
//     request/reply, one subject per endpoint, with advisory cancellation
//     signals on a shared cancel subject.
//   - Local runs the stages in process, in topology order, for embedded
//     deployments and tests.
//
// Topologies load from inline JSON strings in configuration or from a YAML
// flow file, and are validated at startup: the graph must contain
// start-gateway, every stage must be reachable, end-gateway must be
// terminal, and the graph must be acyclic.
package flow
