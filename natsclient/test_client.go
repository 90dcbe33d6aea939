package natsclient

import (
	"context"
	"fmt"
	"testing"
	"time"

	gonats "github.com/nats-io/nats.go"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestClient runs a disposable NATS broker in a container with a
// connected Client against it, so tests exercise real broker behavior
// instead of mocks.
type TestClient struct {
	container testcontainers.Container
	Client    *Client
	URL       string
	cleanup   func()
}

// testProfile bundles the image tag and timeouts for the broker
// container. The profile options in test_options.go cover the common
// combinations.
type testProfile struct {
	version        string
	connectTimeout time.Duration
	startupTimeout time.Duration
}

// TestOption adjusts the broker container profile.
type TestOption func(*testProfile)

// WithNATSVersion pins a specific NATS server image tag.
func WithNATSVersion(version string) TestOption {
	return func(p *testProfile) {
		p.version = version
	}
}

// WithTestTimeout sets the client connect timeout.
func WithTestTimeout(timeout time.Duration) TestOption {
	return func(p *testProfile) {
		p.connectTimeout = timeout
	}
}

// WithStartTimeout sets the container startup timeout.
func WithStartTimeout(timeout time.Duration) TestOption {
	return func(p *testProfile) {
		p.startupTimeout = timeout
	}
}

func newTestProfile(opts []TestOption) *testProfile {
	p := &testProfile{
		version:        "2.11.7-alpine",
		connectTimeout: 5 * time.Second,
		startupTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// launch starts the broker container and connects a managed client to
// it. Both public constructors funnel through here.
func (p *testProfile) launch(ctx context.Context) (*TestClient, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:" + p.version,
			ExposedPorts: []string{"4222/tcp", "8222/tcp"},
			Cmd:          []string{"--port", "4222", "--http_port", "8222"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("4222/tcp"),
				wait.ForHTTP("/").WithPort("8222/tcp").WithStartupTimeout(p.startupTimeout),
			),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("start NATS container: %w", err)
	}

	// Past this point the container must not leak on failure.
	abort := func(err error) (*TestClient, error) {
		_ = container.Terminate(ctx)
		return nil, err
	}

	host, err := container.Host(ctx)
	if err != nil {
		return abort(fmt.Errorf("resolve container host: %w", err))
	}
	port, err := container.MappedPort(ctx, "4222")
	if err != nil {
		return abort(fmt.Errorf("resolve mapped port: %w", err))
	}
	url := fmt.Sprintf("nats://%s:%s", host, port.Port())

	client, err := NewClient(url,
		WithTimeout(p.connectTimeout),
		WithMaxReconnects(0),  // reconnect churn only confuses tests
		WithHealthInterval(0), // no probe goroutine either
	)
	if err != nil {
		return abort(fmt.Errorf("build NATS client: %w", err))
	}

	connectCtx, cancel := context.WithTimeout(ctx, p.connectTimeout)
	defer cancel()

	if err := client.Connect(connectCtx); err != nil {
		return abort(fmt.Errorf("connect to broker: %w", err))
	}
	if err := client.WaitForConnection(connectCtx); err != nil {
		_ = client.Close(ctx)
		return abort(fmt.Errorf("broker never became ready: %w", err))
	}

	return &TestClient{
		container: container,
		Client:    client,
		URL:       url,
		cleanup: func() {
			_ = client.Close(context.Background())
			_ = container.Terminate(context.Background())
		},
	}, nil
}

// NewTestClient starts a broker container scoped to a single test.
// Accepts testing.TB so benchmarks can use it too; teardown runs through
// t.Cleanup.
func NewTestClient(t testing.TB, opts ...TestOption) *TestClient {
	t.Helper()

	tc, err := newTestProfile(opts).launch(context.Background())
	if err != nil {
		t.Fatalf("NATS test setup: %v", err)
	}

	t.Cleanup(tc.cleanup)
	return tc
}

// NewSharedTestClient starts a broker container for TestMain use: it
// takes no testing.T and returns errors, so one container can back a
// whole package. Call Terminate when done.
func NewSharedTestClient(opts ...TestOption) (*TestClient, error) {
	return newTestProfile(opts).launch(context.Background())
}

// Terminate tears down the client and container. Safe to call twice.
func (tc *TestClient) Terminate() error {
	if tc.cleanup != nil {
		tc.cleanup()
		tc.cleanup = nil
	}
	return nil
}

// IsReady reports whether the managed connection is usable.
func (tc *TestClient) IsReady() bool {
	return tc.Client.IsHealthy()
}

// GetNativeConnection exposes the raw connection for request/reply tests.
func (tc *TestClient) GetNativeConnection() *gonats.Conn {
	return tc.Client.GetConnection()
}
