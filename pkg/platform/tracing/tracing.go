// Package tracing wraps the otel calls services make around each command.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dErrors "kycgate/pkg/domain-errors"
)

// Tracer returns the named tracer from the global provider. Without an
// installed provider spans are no-ops.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Start opens a span with attrs.
func Start(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// End records *errp on span and ends it. Use with a named error return:
//
//	ctx, span := tracing.Start(ctx, s.tracer, "ledger.Verify")
//	defer tracing.End(span, &err)
func End(span trace.Span, errp *error) {
	if errp != nil && *errp != nil {
		err := *errp
		span.SetAttributes(attribute.String("error.code", string(dErrors.CodeOf(err))))
		// Domain refusals are expected outcomes, not span failures.
		if dErrors.CodeOf(err) == dErrors.CodeInternal || dErrors.CodeOf(err) == dErrors.CodeTimeout {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}
