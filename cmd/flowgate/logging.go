package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/c360/flowgate/component"
)

func setupLogger(level, format string) *slog.Logger {
	var handler slog.Handler

	// Parse level
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: level == "debug",
	}

	// Create handler based on format
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler).With(
		"service", appName,
		"version", Version,
		"pid", os.Getpid(),
	)
}

// withFlowStream mirrors log records onto the flow's NATS log stream once
// the connection is up, so gateway logs interleave with executor logs.
// Called with a nil connection it returns the logger unchanged.
func withFlowStream(logger *slog.Logger, flowID string, nc *nats.Conn) *slog.Logger {
	if nc == nil {
		return logger
	}
	stream := component.NewStreamHandler(flowID, nc, slog.LevelInfo)
	return slog.New(teeHandler{local: logger.Handler(), stream: stream})
}

// teeHandler fans each record out to the local handler and the flow stream.
type teeHandler struct {
	local  slog.Handler
	stream slog.Handler
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return t.local.Enabled(ctx, level) || t.stream.Enabled(ctx, level)
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	if t.local.Enabled(ctx, r.Level) {
		err = t.local.Handle(ctx, r.Clone())
	}
	if t.stream.Enabled(ctx, r.Level) {
		_ = t.stream.Handle(ctx, r.Clone())
	}
	return err
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return teeHandler{local: t.local.WithAttrs(attrs), stream: t.stream.WithAttrs(attrs)}
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	return teeHandler{local: t.local.WithGroup(name), stream: t.stream.WithGroup(name)}
}
