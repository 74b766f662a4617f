package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

// RunInfo identifies one bugmatrix process. Empty fields are omitted from
// log records and from the telemetry resource.
type RunInfo struct {
	Service string
	Version string
	Mode    AppMode
	// Repository and Variant describe the report being generated; the MCP
	// server leaves them empty.
	Repository string
	Variant    string
}

func (ri RunInfo) logAttrs() []slog.Attr {
	fields := []struct{ key, value string }{
		{"service", ri.Service},
		{"mode", string(ri.Mode)},
		{"version", ri.Version},
		{"repository", ri.Repository},
		{"variant", ri.Variant},
	}

	attrs := make([]slog.Attr, 0, len(fields))

	for _, f := range fields {
		if f.value != "" {
			attrs = append(attrs, slog.String(f.key, f.value))
		}
	}

	return attrs
}

// RunHandler stamps every record with the run identity, attached once at
// the top level, and with trace_id/span_id when the context carries a span.
type RunHandler struct {
	inner slog.Handler
}

// NewRunHandler wraps inner with the attributes of info.
func NewRunHandler(inner slog.Handler, info RunInfo) *RunHandler {
	return &RunHandler{inner: inner.WithAttrs(info.logAttrs())}
}

// Enabled delegates to the inner handler.
func (h *RunHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds the span identifiers, then delegates.
func (h *RunHandler) Handle(ctx context.Context, record slog.Record) error {
	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		record.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	err := h.inner.Handle(ctx, record)
	if err != nil {
		return fmt.Errorf("run handler: %w", err)
	}

	return nil
}

// WithAttrs implements [slog.Handler].
func (h *RunHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &RunHandler{inner: h.inner.WithAttrs(attrs)}
}

// WithGroup implements [slog.Handler].
func (h *RunHandler) WithGroup(name string) slog.Handler {
	return &RunHandler{inner: h.inner.WithGroup(name)}
}

// NewLogger builds the text or JSON logger for cfg. MCP mode must log JSON
// to stderr since stdout carries the protocol.
func NewLogger(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	out := cfg.LogOutput
	if out == nil {
		out = os.Stderr
	}

	var inner slog.Handler = slog.NewTextHandler(out, opts)
	if cfg.LogJSON {
		inner = slog.NewJSONHandler(out, opts)
	}

	return slog.New(NewRunHandler(inner, cfg.Run))
}
