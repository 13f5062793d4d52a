package audit

import (
	"context"
	"log/slog"

	"kycgate/pkg/platform/tx"
	"kycgate/pkg/requestcontext"
)

// Record writes the audit log line and emits event once the enclosing unit
// commits. Outside a unit both happen immediately. A nil logger or emitter is
// skipped, which keeps services usable in tests without either.
func Record(ctx context.Context, logger *slog.Logger, emitter Emitter, event Event) {
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	// The request may be gone by the time the unit's hooks run.
	detached := context.WithoutCancel(ctx)
	tx.AfterCommit(ctx, func() {
		if logger != nil {
			args := []any{
				"event", string(event.Action),
				"log_type", "audit",
				"request_id", event.RequestID,
			}
			if !event.Actor.IsNil() {
				args = append(args, "actor", event.Actor.String())
			}
			if !event.Subject.IsNil() {
				args = append(args, "subject", event.Subject.String())
			}
			if event.OperationID != nil {
				args = append(args, "operation_id", uint64(*event.OperationID))
			}
			logger.InfoContext(detached, string(event.Action), args...)
		}
		if emitter == nil {
			return
		}
		if err := emitter.Emit(detached, event); err != nil && logger != nil {
			logger.ErrorContext(detached, "failed to emit audit event",
				"event", string(event.Action),
				"request_id", event.RequestID,
				"error", err,
			)
		}
	})
}
