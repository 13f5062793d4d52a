package store

import (
	"context"
	"database/sql"
	"fmt"

	"kycgate/internal/roles/models"
	"kycgate/pkg/domain"
	"kycgate/pkg/platform/tx"
)

// PostgresStore persists capability assignments in the capabilities table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Grant(ctx context.Context, a models.Assignment) (bool, error) {
	res, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO capabilities (identity, capability, granted_by, granted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (identity, capability) DO NOTHING
	`, a.Identity.String(), string(a.Capability), nullableIdentity(a.GrantedBy), a.GrantedAt)
	if err != nil {
		return false, fmt.Errorf("grant capability: %w", err)
	}
	return affected(res)
}

func (s *PostgresStore) Revoke(ctx context.Context, who domain.Identity, capability domain.Capability) (bool, error) {
	res, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		DELETE FROM capabilities WHERE identity = $1 AND capability = $2
	`, who.String(), string(capability))
	if err != nil {
		return false, fmt.Errorf("revoke capability: %w", err)
	}
	return affected(res)
}

func (s *PostgresStore) Has(ctx context.Context, who domain.Identity, capability domain.Capability) (bool, error) {
	var held bool
	err := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM capabilities WHERE identity = $1 AND capability = $2)
	`, who.String(), string(capability)).Scan(&held)
	if err != nil {
		return false, fmt.Errorf("check capability: %w", err)
	}
	return held, nil
}

func (s *PostgresStore) Members(ctx context.Context, capability domain.Capability) ([]domain.Identity, error) {
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx, `
		SELECT identity FROM capabilities
		WHERE capability = $1
		ORDER BY granted_at ASC, identity ASC
	`, string(capability))
	if err != nil {
		return nil, fmt.Errorf("list capability members: %w", err)
	}
	defer rows.Close()

	var out []domain.Identity
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan capability member: %w", err)
		}
		who, err := domain.ParseIdentity(raw)
		if err != nil {
			return nil, fmt.Errorf("stored identity %q: %w", raw, err)
		}
		out = append(out, who)
	}
	return out, rows.Err()
}

func (s *PostgresStore) List(ctx context.Context, who domain.Identity) ([]domain.Capability, error) {
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx, `
		SELECT capability FROM capabilities WHERE identity = $1
	`, who.String())
	if err != nil {
		return nil, fmt.Errorf("list capabilities: %w", err)
	}
	defer rows.Close()

	held := make(map[domain.Capability]bool)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan capability: %w", err)
		}
		held[domain.Capability(c)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]domain.Capability, 0, len(held))
	for _, c := range domain.AllCapabilities() {
		if held[c] {
			out = append(out, c)
		}
	}
	return out, nil
}

func nullableIdentity(id domain.Identity) sql.NullString {
	if id.IsNil() {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
