package component

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamHandler_DisabledWithoutConnection(t *testing.T) {
	h := NewStreamHandler("search-flow", nil, slog.LevelInfo)

	assert.False(t, h.Enabled(context.Background(), slog.LevelError))

	// Handle must be a no-op, not a panic.
	r := slog.NewRecord(time.Now(), slog.LevelInfo, "listening", 0)
	assert.NoError(t, h.Handle(context.Background(), r))
}

func TestStreamHandler_LevelGate(t *testing.T) {
	h := NewStreamHandler("search-flow", &nats.Conn{}, slog.LevelInfo)

	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestStreamHandler_ComponentRouting(t *testing.T) {
	h := NewStreamHandler("search-flow", &nats.Conn{}, slog.LevelInfo)

	derived, ok := h.WithAttrs([]slog.Attr{
		slog.String("component", "http-gateway"),
	}).(*StreamHandler)
	require.True(t, ok)

	assert.Equal(t, "http-gateway", derived.component)
	assert.Empty(t, h.component, "derivation must not mutate the parent")
}

func TestStreamHandler_FieldAccumulation(t *testing.T) {
	h := NewStreamHandler("search-flow", &nats.Conn{}, slog.LevelInfo)

	derived := h.WithAttrs([]slog.Attr{slog.String("addr", ":8087")})
	grouped := derived.WithGroup("tls").WithAttrs([]slog.Attr{
		slog.String("cert", "/etc/certs/server.pem"),
	})

	sh, ok := grouped.(*StreamHandler)
	require.True(t, ok)
	assert.Equal(t, ":8087", sh.fields["addr"])
	assert.Equal(t, "/etc/certs/server.pem", sh.fields["tls.cert"])
}

func TestStreamHandler_ErrorAttrBecomesStack(t *testing.T) {
	h := NewStreamHandler("search-flow", &nats.Conn{}, slog.LevelInfo)

	var entry LogEntry
	h.collect(&entry, "", slog.Any("error", fmt.Errorf("connection refused")))

	assert.Contains(t, entry.Stack, "connection refused")
	assert.Empty(t, entry.Fields, "the error attribute is detail, not a field")
}

func TestStreamLevel(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  LogLevel
	}{
		{slog.LevelDebug, LogLevelDebug},
		{slog.LevelInfo, LogLevelInfo},
		{slog.LevelInfo + 1, LogLevelInfo},
		{slog.LevelWarn, LogLevelWarn},
		{slog.LevelError, LogLevelError},
		{slog.LevelError + 4, LogLevelError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, streamLevel(tt.level), "level %v", tt.level)
	}
}

func TestLogEntry_StackAndFieldsOmittedWhenEmpty(t *testing.T) {
	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     LogLevelInfo,
		Component: "http-gateway",
		FlowID:    "search-flow",
		Message:   "listening",
	}

	data, err := json.Marshal(entry)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.NotContains(t, raw, "stack")
	assert.NotContains(t, raw, "fields")
}

// TestStreamHandler_PublishesToFlowStream verifies the full path against a
// live broker: records logged through slog arrive on logs.<flow>.<component>
// in the shared wire format.
func TestStreamHandler_PublishesToFlowStream(t *testing.T) {
	nc := getSharedNATSClient(t)

	received := make(chan LogEntry, 10)
	sub, err := nc.Subscribe("logs.search-flow.http-gateway", func(msg *nats.Msg) {
		var entry LogEntry
		if err := json.Unmarshal(msg.Data, &entry); err != nil {
			t.Errorf("Failed to unmarshal log entry: %v", err)
			return
		}
		received <- entry
	})
	require.NoError(t, err)
	defer func() { _ = sub.Unsubscribe() }()

	time.Sleep(100 * time.Millisecond)

	logger := slog.New(NewStreamHandler("search-flow", nc, slog.LevelInfo)).
		With("component", "http-gateway")
	logger.Info("listening", "addr", ":8087")
	logger.Error("bind failed", "error", fmt.Errorf("address in use"))

	var entries []LogEntry
	for len(entries) < 2 {
		select {
		case entry := <-received:
			entries = append(entries, entry)
		case <-time.After(2 * time.Second):
			t.Fatalf("Expected 2 log entries, got %d", len(entries))
		}
	}

	assert.Equal(t, LogLevelInfo, entries[0].Level)
	assert.Equal(t, "listening", entries[0].Message)
	assert.Equal(t, "http-gateway", entries[0].Component)
	assert.Equal(t, "search-flow", entries[0].FlowID)
	assert.Equal(t, ":8087", entries[0].Fields["addr"])
	_, err = time.Parse(time.RFC3339Nano, entries[0].Timestamp)
	assert.NoError(t, err)

	assert.Equal(t, LogLevelError, entries[1].Level)
	assert.Contains(t, entries[1].Stack, "address in use")
}
