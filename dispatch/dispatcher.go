// Package dispatch implements the transport-neutral request path: envelope
// validation, endpoint resolution against the sealed registry, pipeline
// invocation, and gateway route-trace bookkeeping. Every transport adapter
// funnels into the same Dispatcher so protocol handlers stay thin.
package dispatch

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360/flowgate/endpoint"
	"github.com/c360/flowgate/envelope"
	"github.com/c360/flowgate/errors"
	"github.com/c360/flowgate/metric"
)

// Invoker submits a validated envelope to the processing pipeline and returns
// the processed envelope. Implementations append their own stage entries to
// the routing trace; the dispatcher never inspects stage internals.
type Invoker interface {
	// Invoke processes the envelope addressed at the named endpoint. It is
	// the dispatcher's only suspension point and must honor ctx cancellation.
	// Implementations may return a different envelope instance than the one
	// passed in (a wire round trip decodes a fresh one).
	Invoke(ctx context.Context, endpointName string, env *envelope.Envelope) (*envelope.Envelope, error)

	// Cancel signals best-effort abandonment of the request with the given
	// identifier. Results arriving after Cancel are discarded by the caller.
	Cancel(requestID string)
}

// Dispatcher validates envelopes, resolves their target endpoint, brackets
// pipeline invocation with gateway route entries, and folds pipeline failures
// into the envelope's header status. It holds no per-request state; one
// instance serves all adapters concurrently.
type Dispatcher struct {
	registry *endpoint.Registry
	invoker  Invoker
	logger   *slog.Logger
	metrics  *metric.Metrics
}

// Deps holds runtime dependencies for the dispatcher.
type Deps struct {
	Registry *endpoint.Registry // sealed endpoint registry, required
	Invoker  Invoker            // pipeline invoker, required
	Metrics  *metric.Metrics    // optional
	Logger   *slog.Logger       // optional, defaults to slog.Default()
}

// New creates a dispatcher over a sealed registry and a pipeline invoker.
func New(deps Deps) (*Dispatcher, error) {
	if deps.Registry == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig,
			"Dispatcher", "New", "endpoint registry required")
	}
	if deps.Invoker == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig,
			"Dispatcher", "New", "pipeline invoker required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		registry: deps.Registry,
		invoker:  deps.Invoker,
		logger:   logger,
		metrics:  deps.Metrics,
	}, nil
}

// Dispatch runs one request through validation, endpoint resolution and the
// pipeline, returning the finalized response envelope.
//
// A Go error is returned only for envelopes that fail validation. Every
// failure past that point, including an unknown endpoint, is reported inside
// the returned envelope's header status so that multiplexed transports keep
// their streams healthy. The HTTP adapter filters unknown routes earlier at
// its own boundary and never sees that case here.
//
// The routing trace leaves the dispatcher with a gateway entry first (opened
// before invocation, no end time), the pipeline stage entries in invocation
// order, and a closed gateway entry last carrying the final status.
func (d *Dispatcher) Dispatch(ctx context.Context, env *envelope.Envelope) (*envelope.Envelope, error) {
	if env == nil {
		return nil, errors.WrapInvalid(errors.ErrMalformedRequest,
			"Dispatcher", "Dispatch", "nil envelope")
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}

	name := env.Header.ExecEndpoint
	start := time.Now()

	desc, err := d.registry.Resolve(name)
	if err != nil {
		d.logger.Warn("endpoint not found",
			"endpoint", name,
			"request_id", env.Header.RequestID)
		status := envelope.ErrorStatus(
			fmt.Sprintf("endpoint not found: %s", name), envelope.GatewayExecutor)
		env.AddRoute(envelope.GatewayExecutor).Close(status)
		env.SetStatus(status)
		d.recordError("unknown_endpoint")
		d.observeDuration(name, start)
		return env, nil
	}

	// Gateway-open entry goes in before the pipeline sees the envelope and is
	// intentionally left open; the closing entry appended after invocation
	// carries the end time and final status.
	env.AddRoute(envelope.GatewayExecutor)

	result, invokeErr := d.invoker.Invoke(ctx, desc.Name, env)
	if result != nil {
		env = result
	}

	switch {
	case invokeErr == nil && result == nil:
		d.logger.Error("pipeline returned no response",
			"endpoint", name,
			"request_id", env.Header.RequestID)
		env.SetStatus(envelope.ErrorStatus(
			"internal error: pipeline returned no response", envelope.GatewayExecutor))
		d.recordError("pipeline")
	case invokeErr == nil:
		// Business failures arrive in-band as an error header status set by
		// the failing stage; they are never converted into a Go error.
		if env.Header.Status == nil {
			env.MarkSuccess()
		}
	case stderrors.Is(invokeErr, context.Canceled):
		d.logger.Debug("request cancelled",
			"endpoint", name,
			"request_id", env.Header.RequestID)
		env.SetStatus(envelope.ErrorStatus("request cancelled", envelope.GatewayExecutor))
		d.recordError("cancelled")
	case stderrors.Is(invokeErr, context.DeadlineExceeded):
		d.logger.Warn("request timed out",
			"endpoint", name,
			"request_id", env.Header.RequestID)
		env.SetStatus(envelope.ErrorStatus(
			fmt.Sprintf("request timed out at endpoint %s", name), envelope.GatewayExecutor))
		d.recordError("timeout")
	default:
		d.logger.Error("pipeline invocation failed",
			"endpoint", name,
			"request_id", env.Header.RequestID,
			"error", invokeErr)
		env.SetStatus(envelope.ErrorStatus(invokeErr.Error(), envelope.GatewayExecutor))
		d.recordError("pipeline")
	}

	env.AddRoute(envelope.GatewayExecutor).Close(env.Header.Status)
	d.observeDuration(name, start)
	return env, nil
}

// Cancel forwards best-effort cancellation to the pipeline invoker.
func (d *Dispatcher) Cancel(requestID string) {
	d.invoker.Cancel(requestID)
}

func (d *Dispatcher) observeDuration(endpointName string, start time.Time) {
	if d.metrics != nil {
		d.metrics.RecordDispatchDuration(endpointName, time.Since(start))
	}
}

func (d *Dispatcher) recordError(kind string) {
	if d.metrics != nil {
		d.metrics.RecordError("dispatcher", kind)
	}
}
