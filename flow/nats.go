package flow

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/flowgate/dispatch"
	"github.com/c360/flowgate/envelope"
	"github.com/c360/flowgate/errors"
	"github.com/c360/flowgate/natsclient"
	"github.com/c360/flowgate/pkg/retry"
)

// DefaultSubjectPrefix is the subject namespace pipeline workers listen on.
const DefaultSubjectPrefix = "flow"

// DefaultRequestTimeout bounds a pipeline round trip when neither the
// request context nor the configuration sets a deadline.
const DefaultRequestTimeout = 30 * time.Second

// Ensure NATSInvoker satisfies the dispatcher contract.
var _ dispatch.Invoker = (*NATSInvoker)(nil)

// NATSInvokerConfig holds the subject layout and timing for pipeline
// invocation over NATS.
type NATSInvokerConfig struct {
	// SubjectPrefix namespaces the per-endpoint request subjects. The
	// endpoint /index maps to "<prefix>.index"; nested names map slashes
	// to dots.
	SubjectPrefix string `json:"subject_prefix"`

	// RequestTimeout bounds one pipeline round trip when the request
	// context carries no deadline.
	RequestTimeout time.Duration `json:"request_timeout"`

	// MaxAttempts caps delivery attempts per request. Transient transport
	// faults are retried with backoff inside the request deadline; values
	// below 2 disable retry.
	MaxAttempts int `json:"max_attempts"`
}

// NATSInvoker submits envelopes to pipeline workers using NATS
// request/reply. Workers subscribe to "<prefix>.<endpoint>", run the flow
// stages, and reply with the processed envelope. Cancellation signals are
// published on "<prefix>.cancel" keyed by request ID for workers that honor
// them.
type NATSInvoker struct {
	client   *natsclient.Client
	prefix   string
	timeout  time.Duration
	attempts int
	logger   *slog.Logger
}

// NewNATSInvoker creates an invoker over a managed NATS client.
func NewNATSInvoker(client *natsclient.Client, cfg NATSInvokerConfig, logger *slog.Logger) (*NATSInvoker, error) {
	if client == nil {
		return nil, errors.WrapFatal(errors.ErrNoConnection,
			"NATSInvoker", "NewNATSInvoker", "NATS client required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	return &NATSInvoker{
		client:   client,
		prefix:   prefix,
		timeout:  timeout,
		attempts: attempts,
		logger:   logger,
	}, nil
}

// SubjectFor maps an endpoint name to its request subject.
func (inv *NATSInvoker) SubjectFor(endpointName string) string {
	name := strings.Trim(endpointName, "/")
	name = strings.ReplaceAll(name, "/", ".")
	return inv.prefix + "." + name
}

// CancelSubject returns the subject cancellation signals are published on.
func (inv *NATSInvoker) CancelSubject() string {
	return inv.prefix + ".cancel"
}

// retryConfig keeps backoff short relative to the request deadline so
// retries buy resilience without stretching the round trip.
func (inv *NATSInvoker) retryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:  inv.attempts,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

// Invoke marshals the envelope, issues the request, and decodes the reply.
// With MaxAttempts above one, transient transport faults are retried with
// backoff while the request deadline lasts. Context cancellation and
// deadline exhaustion surface as their context errors so the dispatcher
// classifies them; other transport faults are transient.
func (inv *NATSInvoker) Invoke(ctx context.Context, endpointName string, env *envelope.Envelope) (*envelope.Envelope, error) {
	data, err := env.Marshal()
	if err != nil {
		return nil, err
	}

	conn := inv.client.GetConnection()
	if conn == nil {
		return nil, errors.WrapTransient(errors.ErrNoConnection,
			"NATSInvoker", "Invoke", "NATS connection not available")
	}

	subject := inv.SubjectFor(endpointName)

	reqCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, inv.timeout)
		defer cancel()
	}

	var msg *nats.Msg
	if inv.attempts <= 1 {
		msg, err = conn.RequestWithContext(reqCtx, subject, data)
	} else {
		msg, err = retry.DoWithResult(reqCtx, inv.retryConfig(), func() (*nats.Msg, error) {
			m, reqErr := conn.RequestWithContext(reqCtx, subject, data)
			if reqErr != nil && (stderrors.Is(reqErr, context.Canceled) ||
				stderrors.Is(reqErr, context.DeadlineExceeded) || reqCtx.Err() != nil) {
				// The request window is gone; further attempts cannot help.
				return nil, retry.NonRetryable(reqErr)
			}
			return m, reqErr
		})
	}
	if err != nil {
		switch {
		case stderrors.Is(err, context.Canceled) || ctx.Err() == context.Canceled:
			return nil, context.Canceled
		case stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, nats.ErrTimeout):
			return nil, context.DeadlineExceeded
		case stderrors.Is(err, nats.ErrNoResponders):
			return nil, errors.WrapTransient(err, "NATSInvoker", "Invoke",
				fmt.Sprintf("no pipeline worker listening on %s", subject))
		default:
			return nil, errors.WrapTransient(err, "NATSInvoker", "Invoke",
				fmt.Sprintf("request to %s failed", subject))
		}
	}

	reply, err := envelope.Unmarshal(msg.Data)
	if err != nil {
		return nil, errors.WrapInvalid(err, "NATSInvoker", "Invoke",
			fmt.Sprintf("decode reply from %s", subject))
	}
	return reply, nil
}

// Cancel publishes a best-effort cancellation signal for the request.
// Workers that track request IDs abandon the matching work; the signal is
// advisory and failures are only logged.
func (inv *NATSInvoker) Cancel(requestID string) {
	payload, err := json.Marshal(map[string]string{"requestId": requestID})
	if err != nil {
		return
	}

	if err := inv.client.Publish(context.Background(), inv.CancelSubject(), payload); err != nil {
		inv.logger.Debug("cancel signal publish failed",
			"request_id", requestID,
			"error", err)
	}
}
