// Package httpapi provides the HTTP protocol adapter for the gateway.
//
// The route table is derived from the exposed subset of the endpoint registry
// at construction time: one handler per descriptor, plus the always-present
// /status liveness route and the documentation projection. Requests decode
// into canonical envelopes and flow through the shared dispatcher; pipeline
// failures travel back in-band as the envelope's header status, so HTTP error
// codes are reserved for boundary rejections.
package httpapi

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/flowgate/component"
	"github.com/c360/flowgate/dispatch"
	"github.com/c360/flowgate/endpoint"
	"github.com/c360/flowgate/envelope"
	"github.com/c360/flowgate/errors"
	"github.com/c360/flowgate/gateway"
	"github.com/c360/flowgate/health"
	"github.com/c360/flowgate/metric"
	"github.com/c360/flowgate/pkg/tlsutil"
)

// Routes served by the adapter itself rather than an endpoint descriptor.
const (
	openAPIRoute = "/openapi.json"
	docsRoute    = "/docs"
	metricsRoute = "/metrics"
)

// reservedRoutes can never be taken by an endpoint descriptor.
var reservedRoutes = map[string]bool{
	endpoint.StatusRoute: true,
	openAPIRoute:         true,
	docsRoute:            true,
	metricsRoute:         true,
}

// getOrGenerateRequestID extracts the request ID from headers or generates a
// new one for tracing a request across the gateway and the pipeline stages
func getOrGenerateRequestID(r *http.Request) string {
	// Try to extract from incoming X-Request-ID header
	if reqID := r.Header.Get("X-Request-ID"); reqID != "" {
		return reqID
	}

	// Generate a new request ID using crypto/rand for uniqueness
	// Format: 16 hex characters (8 random bytes)
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// Fallback to timestamp-based ID if random generation fails
		return fmt.Sprintf("req-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// Gateway implements the HTTP protocol adapter.
type Gateway struct {
	name          string
	config        Config
	dispatcher    *dispatch.Dispatcher
	endpoints     *endpoint.Registry
	monitor       *health.Monitor
	flow          component.FlowMeta
	pipelinePorts []component.Port
	logger        *slog.Logger
	metrics       *metric.Metrics

	handler     http.Handler
	extraRoutes []func(*http.ServeMux)

	// Lifecycle state (atomic operations)
	running     atomic.Bool
	lifecycleMu sync.Mutex
	server      *http.Server
	wg          sync.WaitGroup

	// Protects startTime and lastActivity for concurrent reads
	mu           sync.RWMutex
	startTime    time.Time
	lastActivity time.Time

	// Metrics (atomic operations)
	requestsTotal   atomic.Uint64
	requestsSuccess atomic.Uint64
	requestsFailed  atomic.Uint64
	bytesReceived   atomic.Uint64 // Total bytes received in requests
	bytesSent       atomic.Uint64 // Total bytes sent in responses
}

// Ensure Gateway implements all required interfaces
var (
	_ component.LifecycleComponent = (*Gateway)(nil)
	_ component.Discoverable       = (*Gateway)(nil)
)

// Option customizes gateway construction.
type Option func(*Gateway)

// WithRoutes adds caller-owned routes to the gateway's mux at construction
// time. The reserved gateway routes and the "/" fallback cannot be replaced;
// registering a duplicate pattern panics the same way http.ServeMux does.
func WithRoutes(register func(*http.ServeMux)) Option {
	return func(g *Gateway) {
		g.extraRoutes = append(g.extraRoutes, register)
	}
}

// NewGateway creates a new HTTP gateway from configuration.
func NewGateway(rawConfig json.RawMessage, deps component.Dependencies, opts ...Option) (component.Discoverable, error) {
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
	if deps.Endpoints == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Gateway", "NewGateway",
			"endpoint registry is required")
	}

	monitor, _ := deps.HealthMonitor.(*health.Monitor)
	var metrics *metric.Metrics
	if deps.MetricsRegistry != nil {
		metrics = deps.MetricsRegistry.CoreMetrics()
	}

	g := &Gateway{
		name:          "http-gateway",
		config:        config,
		dispatcher:    deps.Dispatcher,
		endpoints:     deps.Endpoints,
		monitor:       monitor,
		flow:          deps.Flow,
		pipelinePorts: deps.PipelinePorts,
		logger:        deps.GetLoggerWithComponent("http-gateway"),
		metrics:       metrics,
	}
	for _, opt := range opts {
		opt(g)
	}

	handler, err := g.buildHandler(deps.MetricsRegistry)
	if err != nil {
		return nil, err
	}
	g.handler = handler

	return g, nil
}

// buildHandler derives the route table from the exposed endpoint descriptors.
// The registry is sealed at startup, so the table never changes afterwards.
func (g *Gateway) buildHandler(registry *metric.MetricsRegistry) (http.Handler, error) {
	mux := http.NewServeMux()

	for _, desc := range g.endpoints.ListExposed() {
		if reservedRoutes[desc.Name] {
			return nil, errors.WrapFatal(
				fmt.Errorf("%w: endpoint %q collides with a reserved gateway route",
					errors.ErrDuplicateEndpoint, desc.Name),
				"Gateway", "buildHandler", "route table construction")
		}
		mux.HandleFunc(desc.Name, g.endpointHandler(desc))
	}

	mux.HandleFunc(endpoint.StatusRoute, g.handleStatus)
	mux.HandleFunc(openAPIRoute, g.handleOpenAPI)
	mux.HandleFunc(docsRoute, g.handleDocs)
	if registry != nil {
		mux.Handle(metricsRoute, metric.Handler(registry))
	}
	for _, register := range g.extraRoutes {
		register(mux)
	}
	mux.HandleFunc("/", g.handleNotFound)

	return mux, nil
}

// Initialize prepares the HTTP gateway
func (g *Gateway) Initialize() error {
	return nil
}

// Start binds the listener and begins serving. The listen error surfaces
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

	addr := gateway.Addr(g.config.Host, g.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.WrapTransient(err, "Gateway", "Start",
			fmt.Sprintf("listen on %s", addr))
	}

	if g.config.TLSEnabled() {
		tlsCfg, err := tlsutil.Server(g.config.ServerTLS())
		if err != nil {
			_ = listener.Close()
			return err
		}
		listener = tls.NewListener(listener, tlsCfg)
	}

	g.server = &http.Server{
		Addr:              addr,
		Handler:           g.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if err := g.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			g.logger.Error("http server terminated", "error", err)
		}
	}()

	g.mu.Lock()
	g.startTime = time.Now()
	g.mu.Unlock()
	g.running.Store(true)

	g.logger.Info("http gateway listening",
		"addr", addr,
		"tls", g.config.TLSEnabled(),
		"endpoints", len(g.endpoints.ListExposed()))
	return nil
}

// Stop gracefully stops the HTTP gateway, draining in-flight requests up to
// the timeout.
func (g *Gateway) Stop(timeout time.Duration) error {
	g.lifecycleMu.Lock()
	defer g.lifecycleMu.Unlock()

	if !g.running.Load() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var stopErr error
	if g.server != nil {
		if err := g.server.Shutdown(ctx); err != nil {
			stopErr = errors.WrapTransient(err, "Gateway", "Stop", "server shutdown")
		}
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
			"Gateway", "Stop", "wait for serve loop")
	}

	g.running.Store(false)
	return stopErr
}

// endpointHandler creates the HTTP handler for one exposed endpoint.
func (g *Gateway) endpointHandler(desc endpoint.Descriptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Get or generate request ID for tracing
		requestID := getOrGenerateRequestID(r)
		w.Header().Set("X-Request-ID", requestID)

		g.requestsTotal.Add(1)
		g.touchActivity()
		if g.metrics != nil {
			g.metrics.RecordRequestReceived(g.name, desc.Name)
		}

		// Preflight is answered before method filtering so OPTIONS does not
		// need to appear in every descriptor's method list.
		if g.config.EnableCORS {
			g.applyCORS(w, r)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}

		if !desc.AllowsMethod(r.Method) {
			g.writeError(w, http.StatusMethodNotAllowed,
				fmt.Sprintf("method %s not allowed", r.Method))
			g.fail(desc.Name)
			return
		}

		// Close body when done (must be before any error returns to prevent resource leak)
		defer r.Body.Close()

		// Read request body with size limit + 1 to detect if request exceeds limit
		bodyReader := io.LimitReader(r.Body, g.config.MaxRequestSize+1)
		requestBody, err := io.ReadAll(bodyReader)
		if err != nil {
			g.writeError(w, http.StatusBadRequest, "failed to read request body")
			g.fail(desc.Name)
			return
		}

		if int64(len(requestBody)) > g.config.MaxRequestSize {
			g.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds maximum size of %d bytes", g.config.MaxRequestSize))
			g.fail(desc.Name)
			return
		}
		g.bytesReceived.Add(uint64(len(requestBody)))

		env, err := g.decodeEnvelope(desc, requestBody, requestID)
		if err != nil {
			g.writeError(w, http.StatusBadRequest, g.sanitizeError(err))
			g.fail(desc.Name)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), g.config.Timeout())
		defer cancel()

		result, err := g.dispatcher.Dispatch(ctx, env)
		if err != nil {
			statusCode := g.mapErrorToHTTPStatus(err)
			g.logger.Warn("request rejected",
				"endpoint", desc.Name,
				"request_id", requestID,
				"error", err)
			g.writeError(w, statusCode, g.sanitizeError(err))
			g.fail(desc.Name)
			return
		}

		g.writeEnvelope(w, desc.Name, result)
	}
}

// decodeEnvelope builds the request envelope from the HTTP body. The exec
// endpoint always follows the route, except /post which honors the body so
// debug clients can address any endpoint through one route.
func (g *Gateway) decodeEnvelope(desc endpoint.Descriptor, body []byte, requestID string) (*envelope.Envelope, error) {
	if len(body) == 0 {
		env := envelope.New(desc.Name)
		env.Header.RequestID = requestID
		return env, nil
	}

	env, err := envelope.Unmarshal(body)
	if err != nil {
		return nil, err
	}
	if desc.Name != endpoint.PostRoute || env.Header.ExecEndpoint == "" {
		env.Header.ExecEndpoint = desc.Name
	}
	if env.Header.RequestID == "" {
		env.Header.RequestID = requestID
	}
	return env, nil
}

// writeEnvelope writes the processed envelope. Pipeline failures ride inside
// the envelope's header status and still answer 200.
func (g *Gateway) writeEnvelope(w http.ResponseWriter, endpointName string, env *envelope.Envelope) {
	data, err := env.Marshal()
	if err != nil {
		g.writeError(w, http.StatusInternalServerError, "internal server error")
		g.fail(endpointName)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		// Can't write error response at this point
		g.requestsFailed.Add(1)
		return
	}

	g.bytesSent.Add(uint64(len(data)))
	g.requestsSuccess.Add(1)
	if g.metrics != nil {
		outcome := "success"
		if env.Header.Status.IsError() {
			outcome = "error"
		}
		g.metrics.RecordRequestCompleted(g.name, endpointName, outcome)
	}
}

// handleStatus serves the always-present liveness route: process status,
// fronted flow identity, uptime, and the aggregated component health.
func (g *Gateway) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		g.writeError(w, http.StatusMethodNotAllowed,
			fmt.Sprintf("method %s not allowed", r.Method))
		return
	}

	g.mu.RLock()
	startTime := g.startTime
	g.mu.RUnlock()

	uptime := time.Duration(0)
	if !startTime.IsZero() {
		uptime = time.Since(startTime)
	}

	resp := statusResponse{
		Status: "healthy",
		Flow:   statusFlow{Name: g.flow.Name, Version: g.flow.Version},
		Uptime: uptime.Round(time.Millisecond).String(),
	}
	if g.monitor != nil && g.monitor.Count() > 0 {
		aggregate := g.monitor.AggregateHealth("gateway")
		resp.Status = aggregate.Status
		resp.Components = g.monitor.GetAll()
	}

	data, err := json.Marshal(resp)
	if err != nil {
		g.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// statusResponse is the /status payload.
type statusResponse struct {
	Status     string                   `json:"status"`
	Flow       statusFlow               `json:"flow"`
	Uptime     string                   `json:"uptime"`
	Components map[string]health.Status `json:"components,omitempty"`
}

type statusFlow struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// handleNotFound answers every path without a registered handler. Unknown
// and unexposed endpoints are indistinguishable from the outside.
func (g *Gateway) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	g.requestsTotal.Add(1)
	g.requestsFailed.Add(1)
	g.writeError(w, http.StatusNotFound, "resource not found")
}

// applyCORS applies CORS headers to the response
func (g *Gateway) applyCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")

	// Check if origin is allowed
	allowed := false
	for _, allowedOrigin := range g.config.CORSOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			allowed = true
			break
		}
	}

	if allowed {
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")
	}
}

// mapErrorToHTTPStatus maps classified errors to HTTP status codes
func (g *Gateway) mapErrorToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusInternalServerError
	}

	if errors.IsInvalid(err) {
		return http.StatusBadRequest
	}
	if errors.IsTransient(err) {
		// Could be timeout, service unavailable, etc.
		if strings.Contains(err.Error(), "timeout") {
			return http.StatusGatewayTimeout
		}
		return http.StatusServiceUnavailable
	}
	if errors.IsFatal(err) {
		return http.StatusInternalServerError
	}

	// Check for specific error patterns
	errStr := err.Error()
	if strings.Contains(errStr, "not found") {
		return http.StatusNotFound
	}
	if strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "permission") {
		return http.StatusForbidden
	}

	return http.StatusInternalServerError
}

// sanitizeError returns a safe error message for external clients.
// Internal error details are logged but not exposed to prevent information disclosure
func (g *Gateway) sanitizeError(err error) string {
	if err == nil {
		return "internal server error"
	}

	// Never expose flow addresses, internal service names, or detailed errors
	if errors.IsInvalid(err) {
		return "invalid request"
	}
	if errors.IsTransient(err) {
		if strings.Contains(err.Error(), "timeout") {
			return "request timeout"
		}
		return "service temporarily unavailable"
	}
	if errors.IsFatal(err) {
		return "internal server error"
	}

	// Check for specific safe error patterns
	errStr := err.Error()
	if strings.Contains(errStr, "not found") {
		return "resource not found"
	}
	if strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "permission") {
		return "access denied"
	}

	return "internal server error"
}

// writeError writes an error response
func (g *Gateway) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := map[string]interface{}{
		"error":  message,
		"status": statusCode,
	}

	data, _ := json.Marshal(response)
	w.Write(data)
}

func (g *Gateway) touchActivity() {
	g.mu.Lock()
	g.lastActivity = time.Now()
	g.mu.Unlock()
}

func (g *Gateway) fail(endpointName string) {
	g.requestsFailed.Add(1)
	if g.metrics != nil {
		g.metrics.RecordRequestCompleted(g.name, endpointName, "rejected")
	}
}

// Component metadata implementation

// Meta returns component metadata
func (g *Gateway) Meta() component.Metadata {
	return component.Metadata{
		Name:        g.name,
		Type:        "gateway",
		Description: "HTTP gateway serving the exposed flow endpoints",
		Version:     "0.1.0",
	}
}

// InputPorts returns the listener port
func (g *Gateway) InputPorts() []component.Port {
	return []component.Port{
		{
			Name:        "http",
			Direction:   component.DirectionInput,
			Required:    true,
			Description: "HTTP listener serving the exposed endpoint routes",
			Config: component.NetworkPort{
				Protocol: "tcp",
				Host:     g.config.Host,
				Port:     g.config.Port,
			},
		},
	}
}

// OutputPorts returns the pipeline hand-off resources declared by the host
// process. Responses ride the request connection, so there is nothing else.
func (g *Gateway) OutputPorts() []component.Port {
	return g.pipelinePorts
}

// ConfigSchema returns the configuration schema
func (g *Gateway) ConfigSchema() component.ConfigSchema {
	return httpGatewaySchema
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

	// Calculate error rate
	var errorRate float64
	if total > 0 {
		errorRate = float64(failed) / float64(total)
	}

	// Calculate throughput rates (average since startup)
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
