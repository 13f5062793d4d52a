package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"kycgate/internal/asset/models"
	"kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
	"kycgate/pkg/platform/tx"
)

// PostgresStore persists assets in guarded_assets and balances in
// asset_balances.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, a *models.Asset) error {
	_, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO guarded_assets
			(id, name, symbol, description, valuation, valuation_currency, document_hash, controller, ledger_ref, supply, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, uuid.UUID(a.ID), a.Name, a.Symbol, a.Description, a.Valuation.Amount, a.Valuation.Currency, a.DocumentHash,
		a.Controller.String(), a.LedgerRef, int64(a.Supply), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

const selectAsset = `
	SELECT id, name, symbol, description, valuation, valuation_currency, document_hash, controller, ledger_ref, supply, created_at, updated_at
	FROM guarded_assets`

func (s *PostgresStore) Get(ctx context.Context, id domain.AssetID) (*models.Asset, error) {
	row := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, selectAsset+` WHERE id = $1`, uuid.UUID(id))
	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return a, err
}

func (s *PostgresStore) Update(ctx context.Context, a *models.Asset) error {
	res, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		UPDATE guarded_assets
		SET valuation = $2, valuation_currency = $3, document_hash = $4, ledger_ref = $5, supply = $6, updated_at = $7
		WHERE id = $1
	`, uuid.UUID(a.ID), a.Valuation.Amount, a.Valuation.Currency, a.DocumentHash, a.LedgerRef, int64(a.Supply), a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update asset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Asset, error) {
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx, selectAsset+` ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var out []*models.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Balance(ctx context.Context, id domain.AssetID, holder domain.Identity) (uint64, error) {
	var balance int64
	err := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, `
		SELECT balance FROM asset_balances WHERE asset_id = $1 AND holder = $2
	`, uuid.UUID(id), holder.String()).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return uint64(balance), nil
}

func (s *PostgresStore) SetBalance(ctx context.Context, id domain.AssetID, holder domain.Identity, amount uint64) error {
	exec := tx.ExecutorFrom(ctx, s.db)
	var err error
	if amount == 0 {
		_, err = exec.ExecContext(ctx, `
			DELETE FROM asset_balances WHERE asset_id = $1 AND holder = $2
		`, uuid.UUID(id), holder.String())
	} else {
		_, err = exec.ExecContext(ctx, `
			INSERT INTO asset_balances (asset_id, holder, balance)
			VALUES ($1, $2, $3)
			ON CONFLICT (asset_id, holder) DO UPDATE SET balance = EXCLUDED.balance
		`, uuid.UUID(id), holder.String(), int64(amount))
	}
	if err != nil {
		return fmt.Errorf("write balance: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAsset(row scanner) (*models.Asset, error) {
	var (
		a          models.Asset
		id         uuid.UUID
		controller string
		supply     int64
	)
	err := row.Scan(&id, &a.Name, &a.Symbol, &a.Description, &a.Valuation.Amount, &a.Valuation.Currency, &a.DocumentHash,
		&controller, &a.LedgerRef, &supply, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan asset: %w", err)
	}
	a.ID = domain.AssetID(id)
	a.Supply = uint64(supply)
	if a.Controller, err = domain.ParseIdentity(controller); err != nil {
		return nil, fmt.Errorf("stored controller %q: %w", controller, err)
	}
	return &a, nil
}
