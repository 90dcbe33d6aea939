package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/c360/flowgate/dispatch"
	"github.com/c360/flowgate/envelope"
	"github.com/c360/flowgate/errors"
)

// Executor processes one stage of an in-process flow. Implementations
// mutate the envelope's data and parameters in place and must honor ctx
// cancellation for long-running work.
type Executor interface {
	Name() string
	Process(ctx context.Context, env *envelope.Envelope) error
}

type executorFunc struct {
	name string
	fn   func(context.Context, *envelope.Envelope) error
}

func (e *executorFunc) Name() string { return e.name }

func (e *executorFunc) Process(ctx context.Context, env *envelope.Envelope) error {
	return e.fn(ctx, env)
}

// ExecutorFunc wraps a function as a named Executor.
func ExecutorFunc(name string, fn func(context.Context, *envelope.Envelope) error) Executor {
	return &executorFunc{name: name, fn: fn}
}

// Ensure Local satisfies the dispatcher contract.
var _ dispatch.Invoker = (*Local)(nil)

// Local runs the flow stages in process, in topology order. Each stage
// appends and closes its own route entry. A stage failure is recorded
// in-band in the envelope's header status and skips the remaining stages.
// Used for embedded deployments and tests; no pipeline transport involved.
type Local struct {
	stages []Executor
	logger *slog.Logger

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

// NewLocal creates an in-process flow over the given ordered stages.
// A flow with no stages echoes envelopes back unchanged.
func NewLocal(stages []Executor, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{
		stages:   stages,
		logger:   logger,
		inflight: make(map[string]context.CancelFunc),
	}
}

// NewLocalFromTopology assembles an in-process flow by resolving each stage
// named in the topology against the executor set.
func NewLocalFromTopology(topo *Topology, executors map[string]Executor, logger *slog.Logger) (*Local, error) {
	order, err := topo.Stages()
	if err != nil {
		return nil, err
	}

	stages := make([]Executor, 0, len(order))
	for _, name := range order {
		exec, ok := executors[name]
		if !ok {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: no executor registered for stage %q",
					errors.ErrInvalidConfig, name),
				"Local", "NewLocalFromTopology", "resolve stages")
		}
		stages = append(stages, exec)
	}
	return NewLocal(stages, logger), nil
}

// Invoke runs the envelope through every stage in order. Business failures
// surface in the envelope's header status with a nil error; only context
// cancellation and deadline exhaustion return Go errors.
func (l *Local) Invoke(ctx context.Context, _ string, env *envelope.Envelope) (*envelope.Envelope, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	requestID := env.Header.RequestID
	l.track(requestID, cancel)
	defer l.untrack(requestID)

	for _, stage := range l.stages {
		if err := runCtx.Err(); err != nil {
			return env, err
		}

		entry := env.AddRoute(stage.Name())
		if err := stage.Process(runCtx, env); err != nil {
			if ctxErr := runCtx.Err(); ctxErr != nil {
				entry.Close(envelope.ErrorStatus(ctxErr.Error(), stage.Name()))
				return env, ctxErr
			}

			l.logger.Debug("stage failed",
				"stage", stage.Name(),
				"request_id", requestID,
				"error", err)
			status := envelope.ErrorStatus(err.Error(), stage.Name())
			entry.Close(status)
			env.SetStatus(status)
			return env, nil
		}
		entry.Close(envelope.SuccessStatus())
	}

	return env, nil
}

// Cancel aborts the in-flight request with the given ID, if any.
func (l *Local) Cancel(requestID string) {
	l.mu.Lock()
	cancel, ok := l.inflight[requestID]
	l.mu.Unlock()

	if ok {
		cancel()
	}
}

func (l *Local) track(requestID string, cancel context.CancelFunc) {
	l.mu.Lock()
	l.inflight[requestID] = cancel
	l.mu.Unlock()
}

func (l *Local) untrack(requestID string) {
	l.mu.Lock()
	delete(l.inflight, requestID)
	l.mu.Unlock()
}
