// Package websocket provides the WebSocket protocol adapter for the gateway.
//
// One connection carries a full-duplex stream of envelope frames. Each
// text or binary frame decodes to one request; every request dispatches on
// its own goroutine, so responses interleave freely and are correlated by
// the envelope's request identifier. Closing the connection cancels every
// request still in flight through the session manager.
package websocket

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/c360/flowgate/component"
	"github.com/c360/flowgate/dispatch"
	"github.com/c360/flowgate/envelope"
	"github.com/c360/flowgate/errors"
	"github.com/c360/flowgate/gateway"
	"github.com/c360/flowgate/metric"
	"github.com/c360/flowgate/pkg/tlsutil"
	"github.com/c360/flowgate/session"
)

// Gateway implements the WebSocket protocol adapter.
type Gateway struct {
	name          string
	config        Config
	dispatcher    *dispatch.Dispatcher
	sessions      *session.Manager
	pipelinePorts []component.Port
	logger        *slog.Logger
	metrics       *metric.Metrics

	upgrader websocket.Upgrader

	// Open connections by session ID, so Stop can close them.
	conns   map[string]*wsConn
	connsMu sync.Mutex

	// Lifecycle state
	running     atomic.Bool
	lifecycleMu sync.Mutex
	server      *http.Server
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	mu           sync.RWMutex
	startTime    time.Time
	lastActivity time.Time

	// Metrics (atomic operations)
	requestsTotal    atomic.Uint64
	requestsSuccess  atomic.Uint64
	requestsFailed   atomic.Uint64
	responsesDropped atomic.Uint64
	bytesReceived    atomic.Uint64
	bytesSent        atomic.Uint64
	connectionsTotal atomic.Uint64
}

// Ensure Gateway implements all required interfaces
var (
	_ component.LifecycleComponent = (*Gateway)(nil)
	_ component.Discoverable       = (*Gateway)(nil)
)

// NewGateway creates a new WebSocket gateway from configuration.
func NewGateway(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	var config Config
	if err := component.SafeUnmarshal(rawConfig, &config); err != nil {
		return nil, errors.WrapInvalid(err, "Gateway", "NewGateway", "config unmarshal")
	}

	// Validate configuration (also applies defaults when rawConfig was empty)
	if err := config.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "Gateway", "NewGateway", "config validation")
	}

	if deps.Dispatcher == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Gateway", "NewGateway",
			"dispatcher is required")
	}

	var metrics *metric.Metrics
	if deps.MetricsRegistry != nil {
		metrics = deps.MetricsRegistry.CoreMetrics()
	}
	logger := deps.GetLoggerWithComponent("websocket-gateway")

	g := &Gateway{
		name:          "websocket-gateway",
		config:        config,
		dispatcher:    deps.Dispatcher,
		sessions:      session.NewManager("websocket-gateway", metrics, logger),
		pipelinePorts: deps.PipelinePorts,
		logger:        logger,
		metrics:       metrics,
		conns:         make(map[string]*wsConn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:    config.ReadBufferSize,
			WriteBufferSize:   config.WriteBufferSize,
			EnableCompression: config.EnableCompression,
			CheckOrigin:       func(_ *http.Request) bool { return true },
		},
	}
	return g, nil
}

// Handler returns the HTTP handler that upgrades requests at the configured
// path. Exposed so the adapter can be mounted in tests without binding a
// listener.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(g.config.Path, g.handleUpgrade)
	return mux
}

// Initialize prepares the WebSocket gateway
func (g *Gateway) Initialize() error {
	return nil
}

// Start binds the listener and begins accepting connections.
func (g *Gateway) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.WrapTransient(err, "Gateway", "Start", "context check")
	}

	g.lifecycleMu.Lock()
	defer g.lifecycleMu.Unlock()

	if g.running.Load() {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "Gateway", "Start",
			"gateway already running")
	}

	// Connection goroutines outlive the Start call; they stop when this
	// context is cancelled in Stop or when their client disconnects.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	g.cancel = cancel

	addr := gateway.Addr(g.config.Host, g.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		cancel()
		return errors.WrapTransient(err, "Gateway", "Start",
			fmt.Sprintf("listen on %s", addr))
	}

	if g.config.TLSEnabled() {
		tlsCfg, err := tlsutil.Server(g.config.ServerTLS())
		if err != nil {
			cancel()
			_ = listener.Close()
			return err
		}
		listener = tls.NewListener(listener, tlsCfg)
	}

	g.server = &http.Server{
		Addr:              addr,
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return runCtx },
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if err := g.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			g.logger.Error("websocket server terminated", "error", err)
		}
	}()

	g.mu.Lock()
	g.startTime = time.Now()
	g.mu.Unlock()
	g.running.Store(true)

	g.logger.Info("websocket gateway listening",
		"addr", addr,
		"path", g.config.Path,
		"tls", g.config.TLSEnabled())
	return nil
}

// Stop closes the listener, tears down open sessions, and waits for
// connection goroutines to drain. Requests still in flight are cancelled and
// forwarded as best-effort pipeline cancellations.
func (g *Gateway) Stop(timeout time.Duration) error {
	g.lifecycleMu.Lock()
	defer g.lifecycleMu.Unlock()

	if !g.running.Load() {
		return nil
	}

	ctx, cancelShutdown := context.WithTimeout(context.Background(), timeout)
	defer cancelShutdown()

	var stopErr error
	if g.server != nil {
		if err := g.server.Shutdown(ctx); err != nil {
			stopErr = errors.WrapTransient(err, "Gateway", "Stop", "server shutdown")
		}
	}

	for _, requestID := range g.sessions.CloseAll() {
		g.dispatcher.Cancel(requestID)
	}
	g.closeConns()
	if g.cancel != nil {
		g.cancel()
	}

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		stopErr = errors.WrapTransient(
			fmt.Errorf("shutdown timeout after %v", timeout),
			"Gateway", "Stop", "wait for connection goroutines")
	}

	g.running.Store(false)
	return stopErr
}

func (g *Gateway) closeConns() {
	g.connsMu.Lock()
	conns := make([]*wsConn, 0, len(g.conns))
	for _, c := range g.conns {
		conns = append(conns, c)
	}
	g.conns = make(map[string]*wsConn)
	g.connsMu.Unlock()

	for _, c := range conns {
		c.close()
	}
}

// handleUpgrade upgrades one HTTP request into a WebSocket connection and
// runs its read loop until the client disconnects. The read loop stays on the
// handler goroutine so the request context lives exactly as long as the
// connection does.
func (g *Gateway) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	raw, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		g.logger.Debug("websocket upgrade rejected", "remote", r.RemoteAddr, "error", err)
		return
	}

	sessionID := envelope.NewRequestID()
	c := newWSConn(raw, g.config.MaxMessageSize, g.config.pingInterval)
	sess := g.sessions.Open(sessionID)

	g.connsMu.Lock()
	g.conns[sessionID] = c
	g.connsMu.Unlock()
	g.connectionsTotal.Add(1)

	g.logger.Debug("websocket connection opened",
		"session_id", sessionID,
		"remote", r.RemoteAddr)

	g.wg.Add(1)
	g.serveConn(r.Context(), sessionID, c, sess)
}

// serveConn reads frames until the connection dies, then tears the session
// down and forwards cancellation for any requests still in flight.
func (g *Gateway) serveConn(ctx context.Context, sessionID string, c *wsConn, sess *session.Session) {
	defer g.wg.Done()
	defer func() {
		for _, requestID := range g.sessions.Close(sessionID) {
			g.dispatcher.Cancel(requestID)
		}
		g.connsMu.Lock()
		delete(g.conns, sessionID)
		g.connsMu.Unlock()
		c.close()
		g.logger.Debug("websocket connection closed", "session_id", sessionID)
	}()

	if g.config.pingInterval > 0 {
		pingCtx, stopPing := context.WithCancel(ctx)
		defer stopPing()
		g.wg.Add(1)
		go g.pingLoop(pingCtx, c)
	}

	var limiter *rate.Limiter
	if g.config.MessageRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(g.config.MessageRateLimit), g.config.MessageRateBurst)
	}

	for {
		if ctx.Err() != nil {
			return
		}

		msgType, data, err := c.read()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				g.logger.Debug("websocket read failed", "session_id", sessionID, "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}

		g.bytesReceived.Add(uint64(len(data)))
		g.touchActivity()

		g.handleFrame(ctx, c, sess, limiter, data)
	}
}

// pingLoop keeps the connection alive. Pings share the write mutex with
// response frames.
func (g *Gateway) pingLoop(ctx context.Context, c *wsConn) {
	defer g.wg.Done()

	ticker := time.NewTicker(g.config.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

// handleFrame decodes one frame into a request envelope and dispatches it on
// its own goroutine. Boundary rejections answer in-band with an error-status
// envelope; the connection itself stays healthy.
func (g *Gateway) handleFrame(ctx context.Context, c *wsConn, sess *session.Session, limiter *rate.Limiter, data []byte) {
	g.requestsTotal.Add(1)

	env, err := envelope.Unmarshal(data)
	if err != nil {
		g.rejectFrame(c, "", "malformed_frame", "malformed request envelope")
		return
	}

	requestID := env.EnsureRequestID()
	if limiter != nil && !limiter.Allow() {
		g.rejectFrame(c, requestID, "rate_limited", "message rate limit exceeded")
		return
	}

	if g.metrics != nil {
		g.metrics.RecordRequestReceived(g.name, env.Header.ExecEndpoint)
	}

	reqCtx, cancelReq := context.WithTimeout(ctx, g.config.Timeout())
	if err := sess.Track(requestID, cancelReq); err != nil {
		cancelReq()
		g.rejectFrame(c, requestID, "duplicate_request", "request not accepted: duplicate or closed session")
		return
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer cancelReq()

		result, dispatchErr := g.dispatcher.Dispatch(reqCtx, env)
		if dispatchErr != nil {
			// Only validation failures surface as Go errors; everything else
			// is already folded into the envelope status by the dispatcher.
			result = rejectionEnvelope(requestID, env.Header.ExecEndpoint, sanitizeError(dispatchErr))
		}

		if err := sess.Deliver(requestID, func() error {
			return g.writeEnvelope(c, result)
		}); err != nil {
			// Session closed before the response was ready. There is no
			// client left to receive it: log and drop.
			g.responsesDropped.Add(1)
			g.logger.Warn("dropping response for closed session",
				"session_id", sess.ID(),
				"request_id", requestID)
			if g.metrics != nil {
				g.metrics.RecordError(g.name, "session_closed")
			}
			return
		}

		outcome := "success"
		if result.Header.Status.IsError() {
			outcome = "error"
			g.requestsFailed.Add(1)
		} else {
			g.requestsSuccess.Add(1)
		}
		if g.metrics != nil {
			g.metrics.RecordRequestCompleted(g.name, env.Header.ExecEndpoint, outcome)
		}
	}()
}

// rejectFrame answers a frame that never reached the dispatcher.
func (g *Gateway) rejectFrame(c *wsConn, requestID, reason, description string) {
	g.requestsFailed.Add(1)
	if g.metrics != nil {
		g.metrics.RecordError(g.name, reason)
	}
	if err := g.writeEnvelope(c, rejectionEnvelope(requestID, "", description)); err != nil {
		g.logger.Debug("failed to write rejection", "error", err)
	}
}

func (g *Gateway) writeEnvelope(c *wsConn, env *envelope.Envelope) error {
	data, err := env.Marshal()
	if err != nil {
		return err
	}
	if err := c.writeText(data); err != nil {
		return err
	}
	g.bytesSent.Add(uint64(len(data)))
	return nil
}

func (g *Gateway) touchActivity() {
	g.mu.Lock()
	g.lastActivity = time.Now()
	g.mu.Unlock()
}

// rejectionEnvelope builds the in-band error response for a request that was
// rejected at the adapter boundary.
func rejectionEnvelope(requestID, execEndpoint, description string) *envelope.Envelope {
	if requestID == "" {
		requestID = envelope.NewRequestID()
	}
	return &envelope.Envelope{
		Header: envelope.Header{
			RequestID:    requestID,
			ExecEndpoint: execEndpoint,
			Status:       envelope.ErrorStatus(description, envelope.GatewayExecutor),
		},
	}
}

// sanitizeError maps a classified error to a client-safe description.
// Internals (subjects, addresses, stack context) never leak into the frame.
func sanitizeError(err error) string {
	switch {
	case err == nil:
		return "internal error"
	case errors.IsInvalid(err):
		return "invalid request"
	case errors.IsTransient(err):
		if strings.Contains(err.Error(), "timeout") {
			return "request timeout"
		}
		return "service temporarily unavailable"
	default:
		return "internal error"
	}
}

// wsConn wraps a gorilla connection with serialized writes. The read loop is
// the only reader; responses, rejections, and pings all contend on writeMu.
type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	closeOnce sync.Once
}

func newWSConn(conn *websocket.Conn, maxMessageSize int64, pingInterval time.Duration) *wsConn {
	conn.SetReadLimit(maxMessageSize)
	if pingInterval > 0 {
		// Allow one missed pong before declaring the peer dead.
		pongWait := 2 * pingInterval
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
	}
	return &wsConn{conn: conn}
}

func (c *wsConn) read() (int, []byte, error) {
	return c.conn.ReadMessage()
}

func (c *wsConn) writeText(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

func (c *wsConn) close() {
	c.closeOnce.Do(func() {
		_ = c.conn.Close()
	})
}

// writeWait bounds a single frame write so one stalled client cannot pin a
// response goroutine forever.
const writeWait = 10 * time.Second

// Component metadata implementation

// Meta returns component metadata
func (g *Gateway) Meta() component.Metadata {
	return component.Metadata{
		Name:        g.name,
		Type:        "gateway",
		Description: "WebSocket gateway multiplexing envelope requests per connection",
		Version:     "0.1.0",
	}
}

// InputPorts returns the listener port
func (g *Gateway) InputPorts() []component.Port {
	return []component.Port{
		{
			Name:        "websocket",
			Direction:   component.DirectionInput,
			Required:    true,
			Description: "WebSocket listener accepting envelope frames",
			Config: component.NetworkPort{
				Protocol: "tcp",
				Host:     g.config.Host,
				Port:     g.config.Port,
			},
		},
	}
}

// OutputPorts returns the pipeline hand-off resources declared by the host
// process. Responses ride the session connection, so there is nothing else.
func (g *Gateway) OutputPorts() []component.Port {
	return g.pipelinePorts
}

// ConfigSchema returns the configuration schema
func (g *Gateway) ConfigSchema() component.ConfigSchema {
	return wsGatewaySchema
}

// Health returns the current health status
func (g *Gateway) Health() component.HealthStatus {
	g.mu.RLock()
	startTime := g.startTime
	g.mu.RUnlock()

	running := g.running.Load()
	uptime := time.Duration(0)
	if running && !startTime.IsZero() {
		uptime = time.Since(startTime)
	}

	return component.HealthStatus{
		Healthy:    running,
		LastCheck:  time.Now(),
		ErrorCount: int(g.requestsFailed.Load()),
		Uptime:     uptime,
	}
}

// DataFlow returns current data flow metrics
func (g *Gateway) DataFlow() component.FlowMetrics {
	g.mu.RLock()
	startTime := g.startTime
	lastActivity := g.lastActivity
	g.mu.RUnlock()

	total := g.requestsTotal.Load()
	failed := g.requestsFailed.Load()
	bytesRx := g.bytesReceived.Load()
	bytesTx := g.bytesSent.Load()

	var errorRate float64
	if total > 0 {
		errorRate = float64(failed) / float64(total)
	}

	var messagesPerSecond, bytesPerSecond float64
	if !startTime.IsZero() {
		uptime := time.Since(startTime).Seconds()
		if uptime > 0 {
			messagesPerSecond = float64(total) / uptime
			bytesPerSecond = float64(bytesRx+bytesTx) / uptime
		}
	}

	return component.FlowMetrics{
		MessagesPerSecond: messagesPerSecond,
		BytesPerSecond:    bytesPerSecond,
		ErrorRate:         errorRate,
		LastActivity:      lastActivity,
	}
}
