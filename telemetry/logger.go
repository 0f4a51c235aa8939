package telemetry

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTELHook adds trace and span IDs to every log entry
type OTELHook struct{}

func (h OTELHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
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

// Logger wraps zerolog with OTEL integration
type Logger struct {
	zerolog.Logger
}

// NewLogger creates a new logger with OTEL hooks
func NewLogger(service string) *Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", service).
		Logger().
		Hook(OTELHook{})

	return &Logger{Logger: logger}
}

// WithContext returns a logger with context (for trace propagation)
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	logger := l.Logger.With().Ctx(ctx).Logger()
	return &logger
}

// Convenience methods for the build pipeline

func (l *Logger) LogBuildStart(ctx context.Context, roots int, kinds int) {
	l.WithContext(ctx).Info().
		Int("roots", roots).
		Int("kinds", kinds).
		Str("operation", "rebuild").
		Msg("starting inventory build")
}

func (l *Logger) LogBuildComplete(ctx context.Context, compartments, resources int, durationMs float64) {
	l.WithContext(ctx).Info().
		Int("compartments", compartments).
		Int("resources", resources).
		Float64("duration_ms", durationMs).
		Str("operation", "rebuild").
		Msg("inventory build completed")
}

func (l *Logger) LogBuildAborted(ctx context.Context, err error) {
	l.WithContext(ctx).Error().
		Err(err).
		Str("operation", "rebuild").
		Msg("inventory build aborted, keeping previous snapshot")
}

func (l *Logger) LogSnapshotPersisted(ctx context.Context, path string, revision int64) {
	l.WithContext(ctx).Info().
		Str("path", path).
		Int64("revision", revision).
		Str("operation", "persist").
		Msg("snapshot persisted")
}

func (l *Logger) LogStaleServed(ctx context.Context, ageHours float64) {
	l.WithContext(ctx).Warn().
		Float64("age_hours", ageHours).
		Msg("serving stale snapshot")
}
