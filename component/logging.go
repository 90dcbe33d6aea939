package component

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// LogLevel is the severity carried on the flow log stream.
type LogLevel string

// Stream severity levels, ordered DEBUG < INFO < WARN < ERROR.
const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// LogEntry is the wire format of one record on the flow log stream.
// Executors publish the same shape, so gateway and pipeline logs interleave
// under a single subject space.
type LogEntry struct {
	Timestamp string            `json:"timestamp"` // RFC3339Nano
	Level     LogLevel          `json:"level"`
	Component string            `json:"component"`
	FlowID    string            `json:"flow_id"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	Stack     string            `json:"stack,omitempty"` // error detail for ERROR records
}

// StreamHandler is a slog.Handler that mirrors log records onto the flow's
// NATS log stream at "logs.<flow>.<component>". It is meant to be composed
// with a local handler, not to replace one: publish failures are swallowed
// so logging can never take the gateway down.
//
// The component segment of the subject comes from the "component" attribute
// the adapters bind with Logger.With, falling back to "gateway".
type StreamHandler struct {
	flowID string
	nc     *nats.Conn
	min    slog.Level

	// Bound state from WithAttrs/WithGroup. Handlers are immutable; each
	// derivation copies.
	component string
	prefix    string
	fields    map[string]string
}

var _ slog.Handler = (*StreamHandler)(nil)

// NewStreamHandler creates a handler publishing to the flow's log stream.
// A nil connection yields a disabled handler, so callers can wire it
// unconditionally.
func NewStreamHandler(flowID string, nc *nats.Conn, min slog.Level) *StreamHandler {
	return &StreamHandler{
		flowID: flowID,
		nc:     nc,
		min:    min,
	}
}

// Enabled reports whether a record at this level would be published.
func (h *StreamHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.nc != nil && level >= h.min
}

// Handle publishes the record to the flow log stream. It never returns an
// error: a log mirror that can fail its caller is worse than a lost record.
func (h *StreamHandler) Handle(_ context.Context, r slog.Record) error {
	if h.nc == nil {
		return nil
	}

	entry := LogEntry{
		Timestamp: r.Time.UTC().Format(time.RFC3339Nano),
		Level:     streamLevel(r.Level),
		Component: h.component,
		FlowID:    h.flowID,
		Message:   r.Message,
	}
	if entry.Component == "" {
		entry.Component = "gateway"
	}
	if len(h.fields) > 0 {
		entry.Fields = make(map[string]string, len(h.fields)+r.NumAttrs())
		for k, v := range h.fields {
			entry.Fields[k] = v
		}
	}

	r.Attrs(func(a slog.Attr) bool {
		h.collect(&entry, h.prefix, a)
		return true
	})

	data, err := json.Marshal(entry)
	if err != nil {
		return nil
	}

	subject := fmt.Sprintf("logs.%s.%s", h.flowID, entry.Component)
	_ = h.nc.Publish(subject, data)
	return nil
}

// WithAttrs binds attributes into the handler. The "component" attribute
// selects the subject segment; everything else becomes stream fields.
func (h *StreamHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := h.clone()
	entry := LogEntry{Fields: derived.fields, Component: derived.component}
	for _, a := range attrs {
		derived.collect(&entry, derived.prefix, a)
	}
	derived.fields = entry.Fields
	if entry.Component != "" {
		derived.component = entry.Component
	}
	return derived
}

// WithGroup qualifies subsequent attribute keys with the group name.
func (h *StreamHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	derived := h.clone()
	derived.prefix = derived.prefix + name + "."
	return derived
}

func (h *StreamHandler) clone() *StreamHandler {
	derived := *h
	if h.fields != nil {
		derived.fields = make(map[string]string, len(h.fields))
		for k, v := range h.fields {
			derived.fields[k] = v
		}
	}
	return &derived
}

// collect folds one attribute into the entry: the component attribute is
// routing, errors feed the stack detail, groups recurse with a longer
// prefix, and the rest become fields.
func (h *StreamHandler) collect(entry *LogEntry, prefix string, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, member := range a.Value.Group() {
			h.collect(entry, prefix+a.Key+".", member)
		}
		return
	}

	value := a.Value.Resolve()
	if prefix == "" && a.Key == "component" {
		entry.Component = value.String()
		return
	}
	if a.Key == "error" {
		if err, ok := value.Any().(error); ok && err != nil {
			entry.Stack = fmt.Sprintf("%+v", err)
			return
		}
	}

	if entry.Fields == nil {
		entry.Fields = make(map[string]string, 4)
	}
	entry.Fields[prefix+a.Key] = value.String()
}

// streamLevel maps slog levels onto the four stream severities.
func streamLevel(level slog.Level) LogLevel {
	switch {
	case level < slog.LevelInfo:
		return LogLevelDebug
	case level < slog.LevelWarn:
		return LogLevelInfo
	case level < slog.LevelError:
		return LogLevelWarn
	default:
		return LogLevelError
	}
}
