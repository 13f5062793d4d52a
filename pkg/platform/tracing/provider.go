package tracing

import (
	"context"
	"log/slog"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config selects how many root spans are sampled and whether finished spans
// are written to the log.
type Config struct {
	SampleRatio float64
	LogSpans    bool
}

// NewProvider builds the SDK provider services take their tracers from.
// Children follow their parent's sampling decision. Extra options, such as an
// exporter, are applied last.
func NewProvider(cfg Config, logger *slog.Logger, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	base := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	}
	if cfg.LogSpans && logger != nil {
		base = append(base, sdktrace.WithBatcher(NewLogExporter(logger)))
	}
	return sdktrace.NewTracerProvider(append(base, opts...)...)
}

// LogExporter writes each finished span as one structured log line.
type LogExporter struct {
	logger *slog.Logger
}

func NewLogExporter(logger *slog.Logger) *LogExporter {
	return &LogExporter{logger: logger}
}

// ExportSpans implements sdktrace.SpanExporter.
func (e *LogExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		args := []any{
			"span", span.Name(),
			"trace_id", span.SpanContext().TraceID().String(),
			"span_id", span.SpanContext().SpanID().String(),
			"duration", span.EndTime().Sub(span.StartTime()),
			"status", span.Status().Code.String(),
		}
		for _, kv := range span.Attributes() {
			args = append(args, "attr."+string(kv.Key), kv.Value.Emit())
		}
		e.logger.InfoContext(ctx, "span finished", args...)
	}
	return nil
}

// Shutdown implements sdktrace.SpanExporter.
func (e *LogExporter) Shutdown(context.Context) error {
	return nil
}
