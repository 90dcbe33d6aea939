// Package grpc provides the gRPC protocol adapter for the gateway.
//
// The adapter serves the flowgate.Gateway service: a unary Process method and
// a bidi Call stream. Both carry the canonical JSON envelope via a JSON codec
// rather than generated protobuf messages. On the Call stream each inbound
// envelope dispatches on its own goroutine; responses pair with requests by
// the envelope's request identifier and interleave freely. Tearing the stream
// down cancels every request still in flight.
package grpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/c360/flowgate/component"
	"github.com/c360/flowgate/dispatch"
	"github.com/c360/flowgate/envelope"
	"github.com/c360/flowgate/errors"
	"github.com/c360/flowgate/gateway"
	"github.com/c360/flowgate/metric"
	"github.com/c360/flowgate/pkg/tlsutil"
	"github.com/c360/flowgate/session"
)

// Gateway implements the gRPC protocol adapter.
type Gateway struct {
	name          string
	config        Config
	dispatcher    *dispatch.Dispatcher
	sessions      *session.Manager
	pipelinePorts []component.Port
	logger        *slog.Logger
	metrics       *metric.Metrics

	// Lifecycle state
	running     atomic.Bool
	lifecycleMu sync.Mutex
	server      *grpc.Server
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
	streamsTotal     atomic.Uint64
}

// Ensure Gateway implements all required interfaces
var (
	_ component.LifecycleComponent = (*Gateway)(nil)
	_ component.Discoverable       = (*Gateway)(nil)
	_ gatewayService               = (*Gateway)(nil)
)

// NewGateway creates a new gRPC gateway from configuration.
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
	logger := deps.GetLoggerWithComponent("grpc-gateway")

	return &Gateway{
		name:          "grpc-gateway",
		config:        config,
		dispatcher:    deps.Dispatcher,
		sessions:      session.NewManager("grpc-gateway", metrics, logger),
		pipelinePorts: deps.PipelinePorts,
		logger:        logger,
		metrics:       metrics,
	}, nil
}

// buildServer assembles the gRPC server with the JSON codec, message size
// limit, optional TLS, and the gateway service registration.
func (g *Gateway) buildServer() (*grpc.Server, error) {
	opts := []grpc.ServerOption{
		grpc.ForceServerCodec(newCountingCodec(&g.bytesReceived, &g.bytesSent)),
		grpc.MaxRecvMsgSize(int(g.config.MaxRecvMsgSize)),
	}

	if g.config.TLSEnabled() {
		tlsCfg, err := tlsutil.Server(g.config.ServerTLS())
		if err != nil {
			return nil, errors.WrapFatal(err, "Gateway", "buildServer", "TLS credentials")
		}
		opts = append(opts, grpc.Creds(credentials.NewTLS(tlsCfg)))
	}

	server := grpc.NewServer(opts...)
	server.RegisterService(&serviceDesc, g)
	return server, nil
}

// Initialize prepares the gRPC gateway
func (g *Gateway) Initialize() error {
	return nil
}

// Start binds the listener and begins serving. The listener is bound
// synchronously so a taken port fails startup instead of a background log.
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

	server, err := g.buildServer()
	if err != nil {
		return err
	}

	addr := gateway.Addr(g.config.Host, g.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.WrapTransient(err, "Gateway", "Start",
			fmt.Sprintf("listen on %s", addr))
	}

	g.server = server
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if err := server.Serve(listener); err != nil {
			g.logger.Error("grpc server terminated", "error", err)
		}
	}()

	g.mu.Lock()
	g.startTime = time.Now()
	g.mu.Unlock()
	g.running.Store(true)

	g.logger.Info("grpc gateway listening", "addr", addr, "tls", g.config.TLSEnabled())
	return nil
}

// Stop drains the server gracefully within the timeout, then forces the
// remaining streams closed. Requests still in flight are cancelled and
// forwarded as best-effort pipeline cancellations.
func (g *Gateway) Stop(timeout time.Duration) error {
	g.lifecycleMu.Lock()
	defer g.lifecycleMu.Unlock()

	if !g.running.Load() {
		return nil
	}

	var stopErr error
	if g.server != nil {
		done := make(chan struct{})
		go func() {
			g.server.GracefulStop()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(timeout):
			g.logger.Warn("graceful stop timed out, forcing stream shutdown")
			g.server.Stop()
			<-done
			stopErr = errors.WrapTransient(
				fmt.Errorf("shutdown timeout after %v", timeout),
				"Gateway", "Stop", "graceful drain")
		}
	}

	for _, requestID := range g.sessions.CloseAll() {
		g.dispatcher.Cancel(requestID)
	}

	g.wg.Wait()
	g.running.Store(false)
	return stopErr
}

// Process handles one unary request. The answer is always an envelope: every
// failure past the transport boundary rides in the header status, never in a
// gRPC status error.
func (g *Gateway) Process(ctx context.Context, env *envelope.Envelope) (*envelope.Envelope, error) {
	g.requestsTotal.Add(1)
	g.touchActivity()

	requestID := env.EnsureRequestID()
	if g.metrics != nil {
		g.metrics.RecordRequestReceived(g.name, env.Header.ExecEndpoint)
	}

	reqCtx, cancel := context.WithTimeout(ctx, g.config.Timeout())
	defer cancel()

	result, err := g.dispatcher.Dispatch(reqCtx, env)
	if err != nil {
		result = rejectionEnvelope(requestID, env.Header.ExecEndpoint, sanitizeError(err))
	}

	g.countOutcome(env.Header.ExecEndpoint, result)
	return result, nil
}

// Call handles one bidi stream. Each inbound envelope is dispatched
// concurrently; responses pair by request ID. When the client half-closes,
// responses for accepted requests are drained before the stream ends. When
// the client disconnects, everything still in flight is cancelled.
func (g *Gateway) Call(stream callStream) error {
	g.streamsTotal.Add(1)

	ctx := stream.Context()
	sessionID := envelope.NewRequestID()
	sess := g.sessions.Open(sessionID)
	cs := &callSession{stream: stream}

	defer func() {
		for _, requestID := range g.sessions.Close(sessionID) {
			g.dispatcher.Cancel(requestID)
		}
		g.logger.Debug("grpc stream closed", "session_id", sessionID)
	}()

	g.logger.Debug("grpc stream opened", "session_id", sessionID)

	var pending sync.WaitGroup
	for {
		env, err := stream.Recv()
		if err == io.EOF {
			// Client finished sending; answers for accepted requests still
			// go out before the stream closes.
			pending.Wait()
			return nil
		}
		if err != nil {
			return err
		}

		g.touchActivity()
		g.handleStreamRequest(ctx, cs, sess, &pending, env)
	}
}

// handleStreamRequest dispatches one stream envelope on its own goroutine.
// Boundary rejections answer in-band; the stream itself stays healthy.
func (g *Gateway) handleStreamRequest(ctx context.Context, cs *callSession, sess *session.Session, pending *sync.WaitGroup, env *envelope.Envelope) {
	g.requestsTotal.Add(1)

	requestID := env.EnsureRequestID()
	if g.metrics != nil {
		g.metrics.RecordRequestReceived(g.name, env.Header.ExecEndpoint)
	}

	reqCtx, cancelReq := context.WithTimeout(ctx, g.config.Timeout())
	if err := sess.Track(requestID, cancelReq); err != nil {
		cancelReq()
		g.requestsFailed.Add(1)
		if g.metrics != nil {
			g.metrics.RecordError(g.name, "duplicate_request")
		}
		if sendErr := cs.send(rejectionEnvelope(requestID, env.Header.ExecEndpoint,
			"request not accepted: duplicate or closed session")); sendErr != nil {
			g.logger.Debug("failed to write rejection", "error", sendErr)
		}
		return
	}

	pending.Add(1)
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer pending.Done()
		defer cancelReq()

		result, dispatchErr := g.dispatcher.Dispatch(reqCtx, env)
		if dispatchErr != nil {
			result = rejectionEnvelope(requestID, env.Header.ExecEndpoint, sanitizeError(dispatchErr))
		}

		if err := sess.Deliver(requestID, func() error {
			return cs.send(result)
		}); err != nil {
			// Stream torn down before the response was ready: log and drop.
			g.responsesDropped.Add(1)
			g.logger.Warn("dropping response for closed stream",
				"session_id", sess.ID(),
				"request_id", requestID)
			if g.metrics != nil {
				g.metrics.RecordError(g.name, "session_closed")
			}
			return
		}

		g.countOutcome(env.Header.ExecEndpoint, result)
	}()
}

func (g *Gateway) countOutcome(endpointName string, result *envelope.Envelope) {
	outcome := "success"
	if result.Header.Status.IsError() {
		outcome = "error"
		g.requestsFailed.Add(1)
	} else {
		g.requestsSuccess.Add(1)
	}
	if g.metrics != nil {
		g.metrics.RecordRequestCompleted(g.name, endpointName, outcome)
	}
}

func (g *Gateway) touchActivity() {
	g.mu.Lock()
	g.lastActivity = time.Now()
	g.mu.Unlock()
}

// callSession serializes sends on one stream. SendMsg is not safe for
// concurrent use; session-guarded deliveries and boundary rejections both go
// through sendMu.
type callSession struct {
	stream callStream
	sendMu sync.Mutex
}

func (c *callSession) send(env *envelope.Envelope) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.stream.Send(env)
}

// rejectionEnvelope builds the in-band error response for a request that was
// rejected before reaching the pipeline.
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

// Component metadata implementation

// Meta returns component metadata
func (g *Gateway) Meta() component.Metadata {
	return component.Metadata{
		Name:        g.name,
		Type:        "gateway",
		Description: "gRPC gateway serving unary and bidi streaming envelope requests",
		Version:     "0.1.0",
	}
}

// InputPorts returns the listener port
func (g *Gateway) InputPorts() []component.Port {
	return []component.Port{
		{
			Name:        "grpc",
			Direction:   component.DirectionInput,
			Required:    true,
			Description: "gRPC listener serving the gateway service",
			Config: component.NetworkPort{
				Protocol: "tcp",
				Host:     g.config.Host,
				Port:     g.config.Port,
			},
		},
	}
}

// OutputPorts returns the pipeline hand-off resources declared by the host
// process. Responses ride the request stream, so there is nothing else.
func (g *Gateway) OutputPorts() []component.Port {
	return g.pipelinePorts
}

// ConfigSchema returns the configuration schema
func (g *Gateway) ConfigSchema() component.ConfigSchema {
	return grpcGatewaySchema
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
