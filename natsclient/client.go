package natsclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/flowgate/errors"
	"github.com/c360/flowgate/metric"
)

// ConnectionStatus is the observed state of the NATS connection.
type ConnectionStatus int

// Connection lifecycle states.
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
	StatusCircuitOpen
)

func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusCircuitOpen:
		return "circuit_open"
	default:
		return "unknown"
	}
}

// Sentinel errors callers branch on with errors.Is.
var (
	ErrNotConnected      = stderrors.New("not connected to NATS")
	ErrCircuitOpen       = stderrors.New("circuit breaker is open")
	ErrConnectionTimeout = stderrors.New("connection timeout")
)

// Per-message handler deadline applied by Subscribe.
const messageHandleTimeout = 30 * time.Second

// Status is a point-in-time snapshot of the connection.
type Status struct {
	Status          ConnectionStatus
	FailureCount    int32
	LastFailureTime time.Time
	Reconnects      int32
	RTT             time.Duration
}

// Client wraps a NATS connection with a circuit breaker, reconnect
// handling and an optional health probe. All methods are safe for
// concurrent use.
type Client struct {
	url    string
	logger *slog.Logger

	status  atomic.Int32 // ConnectionStatus; zero value is StatusDisconnected
	breaker *breaker
	closed  atomic.Bool

	conn *nats.Conn
	subs []*nats.Subscription

	// Dial behavior, fixed after construction.
	maxReconnects int
	reconnectWait time.Duration
	pingInterval  time.Duration
	timeout       time.Duration
	drainTimeout  time.Duration
	clientName    string
	compression   bool

	// Breaker tuning, consumed when NewClient builds the breaker.
	circuitThreshold int32
	maxBackoff       time.Duration

	// Credentials, wiped on Close.
	username string
	password string
	token    string

	tlsEnabled  bool
	tlsCertFile string
	tlsKeyFile  string
	tlsCAFile   string

	metrics *metric.Metrics

	onDisconnect   func(error)
	onReconnect    func()
	onHealthChange func(bool)

	// Health probe plumbing, see monitor.go.
	healthInterval time.Duration
	probeTicker    *time.Ticker
	probeStop      chan struct{}

	mu      sync.RWMutex
	closeMu sync.Mutex
}

// NewClient builds a client for the given server URL. The returned client
// is not connected; call Connect.
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		url:              url,
		logger:           slog.Default(),
		maxReconnects:    -1,
		reconnectWait:    2 * time.Second,
		pingInterval:     30 * time.Second,
		healthInterval:   10 * time.Second,
		circuitThreshold: 5,
		maxBackoff:       time.Minute,
		timeout:          5 * time.Second,
		drainTimeout:     30 * time.Second,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}

	// Options may tune the thresholds, so the breaker is built last.
	c.breaker = newBreaker(c.circuitThreshold, c.maxBackoff)

	c.logger.Debug("NATS client created", "url", url)
	return c, nil
}

// URL returns the configured server URL.
func (c *Client) URL() string {
	return c.url
}

// Status returns the current connection status.
func (c *Client) Status() ConnectionStatus {
	return ConnectionStatus(c.status.Load())
}

func (c *Client) setStatus(s ConnectionStatus) {
	c.status.Store(int32(s))
	if c.metrics != nil {
		c.metrics.RecordNATSStatus(s == StatusConnected)
	}
}

// IsHealthy reports whether the connection is established and usable.
func (c *Client) IsHealthy() bool {
	return c.Status() == StatusConnected
}

// Failures returns the failure count since the last successful connect.
func (c *Client) Failures() int32 {
	return c.breaker.count()
}

// Backoff returns the pause the circuit applies before its next probe.
func (c *Client) Backoff() time.Duration {
	return c.breaker.wait()
}

// GetConnection exposes the raw connection for request/reply traffic.
// Returns nil when not connected.
func (c *Client) GetConnection() *nats.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// SetConnection injects an existing connection. Tests use this to bypass
// the dialing path.
func (c *Client) SetConnection(conn *nats.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
	if conn != nil && conn.IsConnected() {
		c.setStatus(StatusConnected)
	}
}

// GetStatus returns a snapshot of the connection state including the
// breaker counters and, when connected, the measured RTT.
func (c *Client) GetStatus() *Status {
	s := &Status{
		Status:          c.Status(),
		FailureCount:    c.breaker.count(),
		LastFailureTime: c.breaker.lastFailure(),
	}

	if conn := c.GetConnection(); conn != nil && conn.IsConnected() {
		if rtt, err := conn.RTT(); err == nil {
			s.RTT = rtt
		}
	}

	return s
}

// MaxReconnects returns the configured reconnect attempt limit.
func (c *Client) MaxReconnects() int {
	return c.maxReconnects
}

// ReconnectWait returns the configured pause between reconnect attempts.
func (c *Client) ReconnectWait() time.Duration {
	return c.reconnectWait
}

// PingInterval returns the configured protocol ping interval.
func (c *Client) PingInterval() time.Duration {
	return c.pingInterval
}

// ConnectionOptions returns the nats.Option set the client dials with.
func (c *Client) ConnectionOptions() []nats.Option {
	return c.natsOptions()
}

func (c *Client) natsOptions() []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.PingInterval(c.pingInterval),
		nats.Timeout(c.timeout),
		nats.DrainTimeout(c.drainTimeout),
		nats.DisconnectErrHandler(c.handleDisconnect),
		nats.ReconnectHandler(c.handleReconnect),
		nats.ClosedHandler(c.handleClosed),
		nats.ErrorHandler(c.handleAsyncError),
	}

	if c.username != "" && c.password != "" {
		opts = append(opts, nats.UserInfo(c.username, c.password))
	}
	if c.token != "" {
		opts = append(opts, nats.Token(c.token))
	}
	if c.tlsEnabled {
		if c.tlsCertFile != "" && c.tlsKeyFile != "" {
			opts = append(opts, nats.ClientCert(c.tlsCertFile, c.tlsKeyFile))
		}
		if c.tlsCAFile != "" {
			opts = append(opts, nats.RootCAs(c.tlsCAFile))
		}
	}
	if c.clientName != "" {
		opts = append(opts, nats.Name(c.clientName))
	}
	if c.compression {
		opts = append(opts, nats.Compression(true))
	}

	return opts
}

// Connect dials the server. It fails fast with ErrCircuitOpen while the
// circuit is open, and counts every failed attempt against the breaker.
func (c *Client) Connect(ctx context.Context) error {
	if c.Status() == StatusCircuitOpen {
		c.logger.Debug("Rejecting connection attempt, circuit open")
		return ErrCircuitOpen
	}

	c.setStatus(StatusConnecting)
	c.logger.Info("Connecting to NATS", "url", c.url)

	// nats.Connect has no context variant, so the dial runs in its own
	// goroutine and the select below enforces the caller's deadline.
	dialed := make(chan error, 1)
	go func() {
		conn, err := nats.Connect(c.url, c.natsOptions()...)
		if err == nil {
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
		}
		dialed <- err
	}()

	var dialErr error
	select {
	case dialErr = <-dialed:
	case <-ctx.Done():
		dialErr = ctx.Err()
	}

	if dialErr != nil {
		c.recordFailure()
		if c.Status() == StatusCircuitOpen {
			return ErrCircuitOpen
		}
		c.setStatus(StatusDisconnected)
		return errors.WrapTransient(dialErr, "Client", "Connect", "dial")
	}

	c.setStatus(StatusConnected)
	c.resetCircuit()
	c.logger.Info("Connected to NATS", "url", c.url)

	if c.healthInterval > 0 {
		c.startHealthProbe()
	}
	if c.onHealthChange != nil {
		c.onHealthChange(true)
	}

	return nil
}

// Close drains and closes the connection. It is idempotent; only the
// first call does any work. The drain window is the configured drain
// timeout, shortened to the context deadline when that is closer.
func (c *Client) Close(ctx context.Context) error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed.Swap(true) {
		return nil
	}

	// The probe goroutine must stop before the main lock is taken.
	c.stopHealthProbe()

	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil {
			c.logger.Error("Unsubscribe failed during close",
				"subject", sub.Subject, "error", err)
			errs = append(errs, errors.Wrap(err, "Client", "Close", "unsubscribe"))
		}
	}
	c.subs = nil

	if c.conn != nil {
		if err := c.drainLocked(ctx); err != nil {
			errs = append(errs, err)
		}
		c.conn.Close()
		c.conn = nil
	}

	// Credentials are useless past this point; drop them from memory.
	c.username, c.password, c.token = "", "", ""

	c.setStatus(StatusDisconnected)

	return stderrors.Join(errs...)
}

func (c *Client) drainLocked(ctx context.Context) error {
	window := c.drainTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left > 0 && left < window {
			window = left
		}
	}

	done := make(chan error, 1)
	go func() { done <- c.conn.Drain() }()

	select {
	case err := <-done:
		if err != nil {
			c.logger.Error("Drain failed", "error", err)
			return errors.Wrap(err, "Client", "Close", "drain")
		}
		return nil
	case <-time.After(window):
		c.logger.Error("Drain timed out, closing anyway", "timeout", window)
		return errors.WrapTransient(
			fmt.Errorf("drain timeout after %v", window),
			"Client", "Close", "drain",
		)
	case <-ctx.Done():
		c.logger.Error("Close cancelled during drain")
		return errors.Wrap(ctx.Err(), "Client", "Close", "drain")
	}
}

// WaitForConnection polls until the connection is healthy or the context
// expires.
func (c *Client) WaitForConnection(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for !c.IsHealthy() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("connection timeout: %w", ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}

// RTT measures the round trip to the server.
func (c *Client) RTT() (time.Duration, error) {
	conn := c.GetConnection()
	if conn == nil || !conn.IsConnected() {
		return 0, ErrNotConnected
	}
	return conn.RTT()
}

// Subscribe registers a handler for a subject. Each delivery runs with a
// context derived from ctx and capped at messageHandleTimeout. The
// subscription is cleaned up on Close.
func (c *Client) Subscribe(ctx context.Context, subject string, handler func(context.Context, []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || !c.conn.IsConnected() {
		return ErrNotConnected
	}

	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		msgCtx, cancel := context.WithTimeout(ctx, messageHandleTimeout)
		defer cancel()
		handler(msgCtx, msg.Data)
	})
	if err != nil {
		return err
	}

	c.subs = append(c.subs, sub)
	return nil
}

// Publish sends data to a subject.
func (c *Client) Publish(_ context.Context, subject string, data []byte) error {
	conn := c.GetConnection()
	if conn == nil || !conn.IsConnected() {
		return ErrNotConnected
	}
	return conn.Publish(subject, data)
}

// Connection event handlers, registered through natsOptions. Callbacks
// run on their own goroutines so a slow consumer cannot stall the NATS
// client's callback dispatch.

func (c *Client) handleDisconnect(_ *nats.Conn, err error) {
	c.setStatus(StatusReconnecting)

	c.mu.RLock()
	onDrop, onHealth := c.onDisconnect, c.onHealthChange
	c.mu.RUnlock()

	if onDrop != nil {
		go onDrop(err)
	}
	if onHealth != nil {
		go onHealth(false)
	}
}

func (c *Client) handleReconnect(_ *nats.Conn) {
	c.setStatus(StatusConnected)
	c.resetCircuit()

	if c.metrics != nil {
		c.metrics.RecordNATSReconnect()
	}

	c.mu.RLock()
	onBack, onHealth := c.onReconnect, c.onHealthChange
	c.mu.RUnlock()

	if onBack != nil {
		go onBack()
	}
	if onHealth != nil {
		go onHealth(true)
	}
}

func (c *Client) handleClosed(_ *nats.Conn) {
	c.setStatus(StatusDisconnected)

	c.mu.RLock()
	onHealth := c.onHealthChange
	c.mu.RUnlock()

	if onHealth != nil {
		go onHealth(false)
	}
}

func (c *Client) handleAsyncError(_ *nats.Conn, sub *nats.Subscription, err error) {
	// Subscription errors land here too; they are not connection
	// failures and must not feed the breaker.
	if sub != nil {
		c.logger.Error("NATS async error", "subject", sub.Subject, "error", err)
		return
	}
	c.logger.Error("NATS async error", "error", err)
}
