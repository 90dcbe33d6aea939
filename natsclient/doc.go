// Package natsclient maintains the gateway's NATS connection: dialing
// with a circuit breaker, automatic reconnect handling, an optional
// RTT-based health probe, and graceful drain on shutdown. Every other
// part of flowgate that talks to the broker goes through the Client this
// package provides; the flow package builds its request/reply invoker on
// top of it.
//
// # Connecting
//
//	client, err := natsclient.NewClient("nats://localhost:4222")
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
//
//	err = client.Publish(ctx, "flow.events", payload)
//
//	err = client.Subscribe(ctx, "flow.events", func(msgCtx context.Context, data []byte) {
//	    // msgCtx carries a per-message deadline
//	})
//
// Request/reply traffic bypasses the wrapper and uses the raw connection:
//
//	conn := client.GetConnection()
//	if conn == nil {
//	    return natsclient.ErrNotConnected
//	}
//	msg, err := conn.RequestWithContext(ctx, "flow.index", payload)
//
// # Circuit breaker
//
// Failed connection attempts are counted in rounds. Once a round reaches
// the threshold (default 5) the circuit opens: Connect fails immediately
// with ErrCircuitOpen instead of dialing. After a pause the circuit
// half-opens and lets one attempt through; a failure there starts the
// next round with the pause doubled, up to a ceiling (default one
// minute). A successful connect resets everything.
//
//	err := client.Connect(ctx)
//	if errors.Is(err, natsclient.ErrCircuitOpen) {
//	    time.Sleep(client.Backoff())
//	    // retry later
//	}
//
// Threshold and ceiling are tunable:
//
//	client, err := natsclient.NewClient(url,
//	    natsclient.WithCircuitBreakerThreshold(10),
//	    natsclient.WithMaxBackoff(30*time.Second),
//	)
//
// # Health probe
//
// With a non-zero health interval (default 10s, zero disables) a
// background goroutine measures RTT on every tick, corrects the status
// when the probe disagrees with it, and reports flips through the
// registered callback:
//
//	client, err := natsclient.NewClient(url,
//	    natsclient.WithHealthInterval(10*time.Second),
//	    natsclient.WithHealthChangeCallback(func(healthy bool) {
//	        readiness.SetNATSReady(healthy)
//	    }),
//	)
//
// Status, GetStatus and WaitForConnection cover polling-style checks.
//
// # Metrics
//
// Passing a metrics registry publishes connection health as Prometheus
// gauges: flowgate_nats_connected, flowgate_nats_rtt_milliseconds,
// flowgate_nats_reconnects_total and flowgate_nats_circuit_breaker.
//
//	registry := metric.NewMetricsRegistry()
//	client, err := natsclient.NewClient(url, natsclient.WithMetrics(registry))
//
// # Authentication
//
// Username/password, token and TLS are configured through options:
//
//	natsclient.WithCredentials("user", "pass")
//	natsclient.WithToken("s3cr3t")
//	natsclient.WithTLS("client.crt", "client.key", "ca.crt")
//
// Credentials are wiped from the client's memory on Close.
//
// # Testing
//
// Integration tests run against a real broker in a container rather than
// a mock; NewTestClient wires the container lifecycle into t.Cleanup:
//
//	func TestPublish(t *testing.T) {
//	    tc := natsclient.NewTestClient(t)
//	    err := tc.Client.Publish(ctx, "test.subject", []byte("data"))
//	    require.NoError(t, err)
//	}
//
// NewSharedTestClient is the TestMain variant: one container backs a
// whole package's tests.
package natsclient
