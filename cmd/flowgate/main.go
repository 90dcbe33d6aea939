// Package main implements the entry point for the flowgate serving gateway.
// Flowgate fronts a data-processing flow with HTTP, WebSocket, and gRPC
// protocol adapters that share one envelope model and one dispatch core.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"syscall"
	"time"

	"github.com/c360/flowgate/component"
	"github.com/c360/flowgate/componentregistry"
	"github.com/c360/flowgate/config"
	"github.com/c360/flowgate/dispatch"
	"github.com/c360/flowgate/endpoint"
	"github.com/c360/flowgate/flow"
	"github.com/c360/flowgate/health"
	"github.com/c360/flowgate/metric"
	"github.com/c360/flowgate/natsclient"
	"github.com/c360/flowgate/types"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "flowgate"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	// Run application with proper error handling
	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	// Parse and validate CLI flags
	cliCfg, logger, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	// Load and validate configuration
	cfg, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	ctx := context.Background()

	// Serving surfaces: sealed endpoint registry and validated flow topology
	endpoints, err := buildEndpointRegistry(cfg)
	if err != nil {
		return err
	}

	topo, err := resolveTopology(cfg)
	if err != nil {
		return err
	}
	slog.Info("Flow topology resolved",
		"flow", cfg.Flow.Name, "executors", topo.Executors())

	// Infrastructure: metrics, NATS connection, pipeline dispatcher
	metricsRegistry := metric.NewMetricsRegistry()

	natsClient, err := setupNATS(ctx, cfg, metricsRegistry, logger)
	if err != nil {
		return err
	}
	defer func() { _ = natsClient.Close(ctx) }()

	// With NATS up, gateway logs also ride the flow log stream.
	logger = withFlowStream(logger, cfg.Flow.Name, natsClient.GetConnection())
	slog.SetDefault(logger)

	dispatcher, err := setupDispatcher(cfg, endpoints, natsClient, metricsRegistry, logger)
	if err != nil {
		return err
	}

	// Gateways from config, all fronting the shared dispatcher
	monitor := health.NewMonitor()
	runner := newComponentRunner(logger, monitor)

	deps := component.Dependencies{
		NATSClient:      natsClient,
		Dispatcher:      dispatcher,
		Endpoints:       endpoints,
		HealthMonitor:   monitor,
		MetricsRegistry: metricsRegistry,
		Logger:          logger,
		Flow:            types.FlowMeta{Name: cfg.Flow.Name, Version: cfg.Flow.Version},
		PipelinePorts:   pipelinePorts(cfg),
	}
	if err := createGateways(cfg, runner, deps); err != nil {
		return err
	}

	var metricsServer *metric.Server
	if cfg.Metrics.Enabled {
		metricsServer = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, metricsRegistry)
	}

	// Run application with signal handling
	return runWithSignalHandling(ctx, runner, metricsServer, cliCfg.ShutdownTimeout)
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting flowgate (flow serving gateway)",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, logger, false, nil
}

// initializeConfiguration loads and validates configuration
func initializeConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	cfg, err := loader.LoadFile(cliCfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// buildEndpointRegistry assembles the sealed endpoint registry from the
// default categories and the custom endpoints exposed in configuration.
func buildEndpointRegistry(cfg *config.Config) (*endpoint.Registry, error) {
	custom := make([]endpoint.Descriptor, 0, len(cfg.Endpoints.Expose))
	for _, ep := range cfg.Endpoints.Expose {
		custom = append(custom, endpoint.Descriptor{
			Name:    ep.Name,
			Exposed: true,
			Methods: ep.Methods,
			Summary: ep.Summary,
			Tags:    ep.Tags,
		})
	}

	endpoints, err := endpoint.BuildRegistry(endpoint.DefaultsOptions{
		NoCRUDEndpoints:  cfg.Endpoints.NoCRUDEndpoints,
		NoDebugEndpoints: cfg.Endpoints.NoDebugEndpoints,
	}, custom)
	if err != nil {
		return nil, fmt.Errorf("build endpoint registry: %w", err)
	}

	slog.Info("Endpoint registry sealed", "exposed", len(endpoints.ListExposed()))
	return endpoints, nil
}

// resolveTopology loads the flow topology: a YAML flow file takes precedence
// over the inline JSON form. Validation happens here so a malformed flow
// description aborts startup instead of surfacing per-request.
func resolveTopology(cfg *config.Config) (*flow.Topology, error) {
	if cfg.Flow.TopologyFile != "" {
		topo, err := flow.LoadFile(cfg.Flow.TopologyFile)
		if err != nil {
			return nil, fmt.Errorf("load topology file: %w", err)
		}
		return topo, nil
	}

	topo, err := flow.FromConfig(cfg.Flow.Graph, cfg.Flow.Addresses)
	if err != nil {
		return nil, fmt.Errorf("resolve flow topology: %w", err)
	}
	return topo, nil
}

// setupNATS builds and connects the managed NATS client the pipeline invoker
// rides on. Connection options come straight from the nats config section.
func setupNATS(
	ctx context.Context, cfg *config.Config, registry *metric.MetricsRegistry, logger *slog.Logger,
) (*natsclient.Client, error) {
	natsURL := "nats://localhost:4222"
	if len(cfg.NATS.URLs) > 0 {
		natsURL = cfg.NATS.URLs[0]
	}

	opts := []natsclient.ClientOption{
		natsclient.WithName(appName + "-" + cfg.Flow.Name),
		natsclient.WithMetrics(registry),
		natsclient.WithLogger(logger.With("component", "nats")),
	}
	if cfg.NATS.MaxReconnects != 0 {
		opts = append(opts, natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects))
	}
	if cfg.NATS.ReconnectWait > 0 {
		opts = append(opts, natsclient.WithReconnectWait(cfg.NATS.ReconnectWait))
	}
	if cfg.NATS.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}
	if cfg.NATS.Token != "" {
		opts = append(opts, natsclient.WithToken(cfg.NATS.Token))
	}
	if cfg.NATS.TLS.Enabled {
		opts = append(opts, natsclient.WithTLS(
			cfg.NATS.TLS.CertFile, cfg.NATS.TLS.KeyFile, cfg.NATS.TLS.CAFile))
	}

	client, err := natsclient.NewClient(natsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.WaitForConnection(connCtx); err != nil {
		return nil, fmt.Errorf("NATS connection timeout: %w", err)
	}

	return client, nil
}

// setupDispatcher wires the NATS-backed pipeline invoker into the dispatch core.
func setupDispatcher(
	cfg *config.Config,
	endpoints *endpoint.Registry,
	natsClient *natsclient.Client,
	registry *metric.MetricsRegistry,
	logger *slog.Logger,
) (*dispatch.Dispatcher, error) {
	invoker, err := flow.NewNATSInvoker(natsClient, flow.NATSInvokerConfig{
		SubjectPrefix:  cfg.Flow.SubjectPrefix,
		RequestTimeout: cfg.Flow.RequestTimeout,
		MaxAttempts:    cfg.Flow.MaxAttempts,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create pipeline invoker: %w", err)
	}

	dispatcher, err := dispatch.New(dispatch.Deps{
		Registry: endpoints,
		Invoker:  invoker,
		Metrics:  registry.CoreMetrics(),
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create dispatcher: %w", err)
	}

	return dispatcher, nil
}

// pipelinePorts describes the NATS resources the shared dispatcher uses:
// request/reply across the flow subject space and the cancellation fan-out.
// Every adapter reports these as its output ports.
func pipelinePorts(cfg *config.Config) []component.Port {
	prefix := cfg.Flow.SubjectPrefix
	if prefix == "" {
		prefix = flow.DefaultSubjectPrefix
	}
	timeout := cfg.Flow.RequestTimeout
	if timeout <= 0 {
		timeout = flow.DefaultRequestTimeout
	}
	retries := 0
	if cfg.Flow.MaxAttempts > 1 {
		retries = cfg.Flow.MaxAttempts - 1
	}

	return []component.Port{
		{
			Name:        "flow_exec",
			Direction:   component.DirectionOutput,
			Required:    true,
			Description: "Request/reply hand-off to the flow executors",
			Config: component.NATSRequestPort{
				Subject:   prefix + ".>",
				Timeout:   timeout.String(),
				Retries:   retries,
				Interface: "envelope.Envelope",
			},
		},
		{
			Name:        "flow_cancel",
			Direction:   component.DirectionOutput,
			Required:    false,
			Description: "Best-effort cancellation fan-out to the executors",
			Config: component.NATSPort{
				Subject: prefix + ".cancel",
			},
		},
	}
}

// createGateways creates one gateway instance per enabled component config
// and hands each to the runner for lifecycle management.
func createGateways(cfg *config.Config, runner *componentRunner, deps component.Dependencies) error {
	registry := component.NewRegistry()
	if err := componentregistry.Register(registry); err != nil {
		return fmt.Errorf("register component factories: %w", err)
	}

	factories := registry.ListComponentTypes()
	sort.Strings(factories)
	slog.Info("Component factories registered", "count", len(factories), "factories", factories)

	// Deterministic creation order: components is a map, so sort instance names.
	names := make([]string, 0, len(cfg.Components))
	for name := range cfg.Components {
		names = append(names, name)
	}
	sort.Strings(names)

	created := 0
	for _, name := range names {
		compCfg := cfg.Components[name]
		if !compCfg.Enabled {
			slog.Info("Component disabled in config", "instance", name)
			continue
		}

		comp, err := registry.CreateComponent(name, compCfg, deps)
		if err != nil {
			return fmt.Errorf("create component %s: %w", name, err)
		}
		if err := runner.add(name, comp); err != nil {
			return err
		}

		slog.Info("Component created from config",
			"instance", name, "factory", compCfg.Name, "type", compCfg.Type)
		created++
	}

	if created == 0 {
		return fmt.Errorf("no enabled gateway components in configuration")
	}
	return nil
}

// runWithSignalHandling starts the gateways and blocks until a shutdown signal
func runWithSignalHandling(
	ctx context.Context,
	runner *componentRunner,
	metricsServer *metric.Server,
	shutdownTimeout time.Duration,
) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if metricsServer != nil {
		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		slog.Info("Metrics server listening", "address", metricsServer.Address())
	}

	if err := runner.startAll(signalCtx); err != nil {
		if metricsServer != nil {
			_ = metricsServer.Stop()
		}
		return fmt.Errorf("start gateways: %w", err)
	}
	slog.Info("Flowgate started successfully", "gateways", runner.managedNames())

	// Refresh the health monitor from component self-reports while running.
	poller := health.NewPoller(runner.monitor, runner.componentHealth, 0, runner.logger)
	poller.Start(signalCtx)

	<-signalCtx.Done()
	slog.Info("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := shutdown(shutdownCtx, runner, poller, metricsServer, shutdownTimeout); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("Flowgate shutdown complete")
	return nil
}

// shutdown halts health sampling, stops gateways in reverse start order,
// then the metrics server
func shutdown(
	ctx context.Context,
	runner *componentRunner,
	poller *health.Poller,
	metricsServer *metric.Server,
	timeout time.Duration,
) error {
	// Calculate timeout from context
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining < timeout {
			timeout = remaining
		}
	}

	// The poller reads component states; it must be quiet before stopAll
	// starts mutating them.
	poller.Stop()

	err := runner.stopAll(timeout)

	if metricsServer != nil {
		if stopErr := metricsServer.Stop(); stopErr != nil {
			slog.Error("Error stopping metrics server", "error", stopErr)
			if err == nil {
				err = stopErr
			}
		}
	}

	return err
}
