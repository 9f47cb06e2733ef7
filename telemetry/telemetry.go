// Package telemetry defines the logging, metrics, and tracing interfaces used
// throughout the orchestration runtime. Implementations typically delegate to
// goa.design/clue and OpenTelemetry (see clue.go) but the interfaces are kept
// small so tests and embedders can supply lightweight stubs (see noop.go).
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Logger captures the structured logging used across the bus, planner,
// orchestrator, and dispatcher. Subsystems log duplicate registration,
// dropped messages, handler panics, and planner fallbacks; illegal task
// status transitions are returned as errors and are not logged.
type Logger interface {
	Debug(ctx context.Context, msg string, keyvals ...any)
	Info(ctx context.Context, msg string, keyvals ...any)
	Warn(ctx context.Context, msg string, keyvals ...any)
	Error(ctx context.Context, msg string, keyvals ...any)
}

// Metrics exposes counter, timer, and gauge helpers for runtime
// instrumentation (message throughput, step latency, queue depth).
type Metrics interface {
	IncCounter(name string, value float64, tags ...string)
	RecordTimer(name string, duration time.Duration, tags ...string)
	RecordGauge(name string, value float64, tags ...string)
}

// Tracer abstracts span creation so runtime code stays agnostic of the
// underlying OpenTelemetry provider.
type Tracer interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
}

// Span represents an in-flight tracing span.
type Span interface {
	End(opts ...trace.SpanEndOption)
	AddEvent(name string, attrs ...any)
	SetStatus(code codes.Code, description string)
	RecordError(err error, opts ...trace.EventOption)
}

// Bundle groups the three observability facets so constructors across the
// module can accept a single argument instead of three.
type Bundle struct {
	Logger  Logger
	Metrics Metrics
	Tracer  Tracer
}

// NoopBundle returns a Bundle whose components discard everything. Safe zero
// value for tests and for embedders who do not want observability wiring.
func NoopBundle() Bundle {
	return Bundle{Logger: NewNoopLogger(), Metrics: NewNoopMetrics(), Tracer: NewNoopTracer()}
}
