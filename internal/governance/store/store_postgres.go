package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"kycgate/internal/governance/models"
	"kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
	"kycgate/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore persists operations in governance_operations. Signers are a
// text[] column kept in signing order.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NextID must run under the sequence key so MAX(id)+1 stays gap free.
func (s *PostgresStore) NextID(ctx context.Context) (domain.OperationID, error) {
	var next int64
	err := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, `
		SELECT COALESCE(MAX(id) + 1, 0) FROM governance_operations
	`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("allocate operation id: %w", err)
	}
	return domain.OperationID(next), nil
}

func (s *PostgresStore) Create(ctx context.Context, op *models.Operation) error {
	_, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO governance_operations
			(id, kind, target, signers, created_by, executed, created_at, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, int64(op.ID), string(op.Kind), op.Target.String(), pq.Array(identityStrings(op.Signers)),
		op.CreatedBy.String(), op.Executed, op.CreatedAt, nullableTime(op.ExecutedAt))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert operation: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id domain.OperationID) (*models.Operation, error) {
	row := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, kind, target, signers, created_by, executed, created_at, executed_at
		FROM governance_operations
		WHERE id = $1
	`, int64(id))
	op, err := scanOperation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return op, err
}

// Save rewrites signers and execution state. Executed rows are never touched.
func (s *PostgresStore) Save(ctx context.Context, op *models.Operation) error {
	res, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		UPDATE governance_operations
		SET signers = $2, executed = $3, executed_at = $4
		WHERE id = $1 AND NOT executed
	`, int64(op.ID), pq.Array(identityStrings(op.Signers)), op.Executed, nullableTime(op.ExecutedAt))
	if err != nil {
		return fmt.Errorf("update operation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Operation, error) {
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx, `
		SELECT id, kind, target, signers, created_by, executed, created_at, executed_at
		FROM governance_operations
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()

	var out []*models.Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOperation(row scanner) (*models.Operation, error) {
	var (
		op         models.Operation
		id         int64
		kind       string
		target     string
		signers    []string
		createdBy  string
		executedAt sql.NullTime
	)
	err := row.Scan(&id, &kind, &target, pq.Array(&signers), &createdBy, &op.Executed, &op.CreatedAt, &executedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan operation: %w", err)
	}
	op.ID = domain.OperationID(id)
	op.Kind = domain.OperationKind(kind)
	if op.Target, err = domain.ParseIdentity(target); err != nil {
		return nil, fmt.Errorf("stored target %q: %w", target, err)
	}
	if op.CreatedBy, err = domain.ParseIdentity(createdBy); err != nil {
		return nil, fmt.Errorf("stored created_by %q: %w", createdBy, err)
	}
	op.Signers = make([]domain.Identity, 0, len(signers))
	for _, raw := range signers {
		who, err := domain.ParseIdentity(raw)
		if err != nil {
			return nil, fmt.Errorf("stored signer %q: %w", raw, err)
		}
		op.Signers = append(op.Signers, who)
	}
	if executedAt.Valid {
		at := executedAt.Time
		op.ExecutedAt = &at
	}
	return &op, nil
}

func identityStrings(ids []domain.Identity) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// PostgresConfig stores the quorum in the single-row governance_config table.
type PostgresConfig struct {
	db *sql.DB
}

func NewPostgresConfig(db *sql.DB) *PostgresConfig {
	return &PostgresConfig{db: db}
}

func (s *PostgresConfig) RequiredSignatures(ctx context.Context) (int, error) {
	var n int
	err := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, `
		SELECT required_signatures FROM governance_config WHERE id = 1
	`).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, sentinel.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read governance config: %w", err)
	}
	return n, nil
}

func (s *PostgresConfig) SetRequiredSignatures(ctx context.Context, n int) error {
	_, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO governance_config (id, required_signatures, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE
		SET required_signatures = EXCLUDED.required_signatures,
		    updated_at = EXCLUDED.updated_at
	`, n)
	if err != nil {
		return fmt.Errorf("write governance config: %w", err)
	}
	return nil
}
