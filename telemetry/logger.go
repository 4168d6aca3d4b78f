// Package telemetry wires logging, tracing, and metrics for the
// tagging core. Components log through zerolog and record spans and
// counters against the OTEL globals; exporters are installed only by
// the CLI entrypoint.
package telemetry

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TraceHook stamps trace and span IDs onto every log entry so logs can
// be correlated with exported spans.
type TraceHook struct{}

func (h TraceHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return
	}

	e.Str("trace_id", span.SpanContext().TraceID().String())
	e.Str("span_id", span.SpanContext().SpanID().String())

	if level == zerolog.ErrorLevel {
		span.SetStatus(codes.Error, msg)
	}
}

// NewLogger builds the service logger used across the core.
func NewLogger(service string) zerolog.Logger {
	return NewLoggerTo(service, os.Stderr)
}

// NewLoggerTo is NewLogger with an explicit sink, for tests.
func NewLoggerTo(service string, w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	return zerolog.New(w).
		With().
		Timestamp().
		Str("service", service).
		Logger().
		Hook(TraceHook{})
}

// Ctx returns a logger bound to ctx so the TraceHook can pick up span
// context.
func Ctx(ctx context.Context, logger zerolog.Logger) *zerolog.Logger {
	l := logger.With().Ctx(ctx).Logger()
	return &l
}
