package natsclient

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestNewTestClient(t *testing.T) {
	tc := NewTestClient(t)

	require.NotNil(t, tc.Client)
	assert.True(t, tc.IsReady())
	assert.NotEmpty(t, tc.URL)

	// The raw connection is reachable for request/reply style tests.
	conn := tc.GetNativeConnection()
	require.NotNil(t, conn)
	assert.True(t, conn.IsConnected())

	rtt, err := conn.RTT()
	require.NoError(t, err)
	assert.Greater(t, rtt, time.Duration(0))
}

func TestTestClient_FastStartupProfile(t *testing.T) {
	start := time.Now()
	tc := NewTestClient(t, WithFastStartup())

	assert.True(t, tc.IsReady())
	assert.Less(t, time.Since(start), 15*time.Second,
		"fast profile should come up well inside its startup timeout")
}

func TestTestClient_IntegrationProfile(t *testing.T) {
	tc := NewTestClient(t, WithIntegrationDefaults())
	assert.True(t, tc.IsReady())

	rtt, err := tc.Client.RTT()
	require.NoError(t, err)
	assert.Greater(t, rtt, time.Duration(0))
}

func TestTestClient_RoundTrip(t *testing.T) {
	tc := NewTestClient(t, WithFastStartup())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	echoed := make(chan []byte, 1)
	require.NoError(t, tc.Client.Subscribe(ctx, "roundtrip.check", func(_ context.Context, data []byte) {
		echoed <- data
	}))

	// The subscription registers asynchronously on the server side.
	time.Sleep(100 * time.Millisecond)

	payload := []byte("hello broker")
	require.NoError(t, tc.Client.Publish(ctx, "roundtrip.check", payload))

	select {
	case data := <-echoed:
		assert.Equal(t, payload, data)
	case <-ctx.Done():
		t.Fatal("message never came back")
	}
}

// Several containers must be able to run side by side without stepping
// on each other's ports or subjects.
func TestTestClient_ParallelContainers(t *testing.T) {
	const count = 3

	var g errgroup.Group
	for i := 0; i < count; i++ {
		id := i
		g.Go(func() error {
			// Not NewTestClient: t.Fatalf must stay on the test goroutine.
			tc, err := NewSharedTestClient(WithFastStartup())
			if err != nil {
				return fmt.Errorf("client %d launch: %w", id, err)
			}
			defer func() { _ = tc.Terminate() }()

			if !tc.IsReady() {
				return fmt.Errorf("client %d not ready", id)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			subject := fmt.Sprintf("parallel.%d", id)
			payload := fmt.Sprintf("payload-%d", id)

			echoed := make(chan []byte, 1)
			if err := tc.Client.Subscribe(ctx, subject, func(_ context.Context, data []byte) {
				echoed <- data
			}); err != nil {
				return fmt.Errorf("client %d subscribe: %w", id, err)
			}

			time.Sleep(100 * time.Millisecond)

			if err := tc.Client.Publish(ctx, subject, []byte(payload)); err != nil {
				return fmt.Errorf("client %d publish: %w", id, err)
			}

			select {
			case data := <-echoed:
				if string(data) != payload {
					return fmt.Errorf("client %d got %q, want %q", id, data, payload)
				}
				return nil
			case <-ctx.Done():
				return fmt.Errorf("client %d timed out", id)
			}
		})
	}

	require.NoError(t, g.Wait())
}

func TestTestClient_TerminateIsIdempotent(t *testing.T) {
	tc := NewTestClient(t, WithFastStartup())

	// Explicit teardown, then the t.Cleanup-registered one, then another
	// manual call; none may panic.
	assert.NotPanics(t, func() { _ = tc.Terminate() })
	assert.NotPanics(t, func() { _ = tc.Terminate() })
}

func BenchmarkTestClientStartup(b *testing.B) {
	for i := 0; i < b.N; i++ {
		tc, err := NewSharedTestClient(WithFastStartup())
		if err != nil {
			b.Fatal(err)
		}
		_ = tc.Terminate()
	}
}
