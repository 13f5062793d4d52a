package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"kycgate/pkg/domain"
	audit "kycgate/pkg/platform/audit"
	"kycgate/pkg/platform/tx"
)

// Store implements audit.Store on the audit_events table. The full envelope
// is kept as JSONB; the columns it is queried by are projected alongside.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts an event. Duplicate ids are ignored so redelivery is safe.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := audit.Marshal(event)
	if err != nil {
		return err
	}

	var opID sql.NullInt64
	if event.OperationID != nil {
		opID = sql.NullInt64{Int64: int64(*event.OperationID), Valid: true}
	}
	var subject sql.NullString
	if !event.Subject.IsNil() {
		subject = sql.NullString{String: event.Subject.String(), Valid: true}
	}

	query := `
		INSERT INTO audit_events (id, category, action, subject, operation_id, occurred_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		event.ID,
		string(event.Action.Category()),
		string(event.Action),
		subject,
		opID,
		event.Timestamp,
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListBySubject returns events about subject, oldest first.
func (s *Store) ListBySubject(ctx context.Context, subject domain.Identity) ([]audit.Event, error) {
	return s.query(ctx, `
		SELECT payload FROM audit_events
		WHERE subject = $1
		ORDER BY seq ASC
	`, subject.String())
}

// ListByOperation returns the trail of one pending operation, oldest first.
func (s *Store) ListByOperation(ctx context.Context, opID domain.OperationID) ([]audit.Event, error) {
	return s.query(ctx, `
		SELECT payload FROM audit_events
		WHERE operation_id = $1
		ORDER BY seq ASC
	`, int64(opID))
}

// ListRecent returns the last limit events, oldest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	return s.query(ctx, `
		SELECT payload FROM (
			SELECT seq, payload FROM audit_events ORDER BY seq DESC LIMIT $1
		) recent
		ORDER BY seq ASC
	`, limit)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]audit.Event, error) {
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		var env audit.Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			return nil, fmt.Errorf("decode audit event: %w", err)
		}
		event, err := audit.FromEnvelope(env)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
