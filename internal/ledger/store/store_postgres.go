package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kycgate/internal/ledger/models"
	"kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
	"kycgate/pkg/platform/tx"
)

// PostgresStore persists verification records for one named ledger. Several
// ledgers share the verification_records table, partitioned by name.
type PostgresStore struct {
	db     *sql.DB
	ledger string
}

func NewPostgres(db *sql.DB, ledger string) *PostgresStore {
	return &PostgresStore{db: db, ledger: ledger}
}

func (s *PostgresStore) Get(ctx context.Context, who domain.Identity) (*models.Record, error) {
	var (
		rec       models.Record
		updatedBy sql.NullString
	)
	err := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, `
		SELECT verified, updated_at, updated_by
		FROM verification_records
		WHERE ledger = $1 AND identity = $2
	`, s.ledger, who.String()).Scan(&rec.Verified, &rec.UpdatedAt, &updatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find verification record: %w", err)
	}
	rec.Identity = who
	if updatedBy.Valid {
		if rec.UpdatedBy, err = domain.ParseIdentity(updatedBy.String); err != nil {
			return nil, fmt.Errorf("stored updated_by %q: %w", updatedBy.String, err)
		}
	}
	return &rec, nil
}

func (s *PostgresStore) Save(ctx context.Context, rec *models.Record) error {
	var updatedBy sql.NullString
	if !rec.UpdatedBy.IsNil() {
		updatedBy = sql.NullString{String: rec.UpdatedBy.String(), Valid: true}
	}
	_, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO verification_records (ledger, identity, verified, updated_at, updated_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (ledger, identity) DO UPDATE
		SET verified = EXCLUDED.verified,
		    updated_at = EXCLUDED.updated_at,
		    updated_by = EXCLUDED.updated_by
	`, s.ledger, rec.Identity.String(), rec.Verified, rec.UpdatedAt, updatedBy)
	if err != nil {
		return fmt.Errorf("save verification record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListVerified(ctx context.Context) ([]domain.Identity, error) {
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx, `
		SELECT identity FROM verification_records
		WHERE ledger = $1 AND verified
		ORDER BY identity ASC
	`, s.ledger)
	if err != nil {
		return nil, fmt.Errorf("list verified identities: %w", err)
	}
	defer rows.Close()

	var out []domain.Identity
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan verified identity: %w", err)
		}
		who, err := domain.ParseIdentity(raw)
		if err != nil {
			return nil, fmt.Errorf("stored identity %q: %w", raw, err)
		}
		out = append(out, who)
	}
	return out, rows.Err()
}
