package tx

import (
	"context"
	"database/sql"
	"time"

	dErrors "kycgate/pkg/domain-errors"
)

// SQLRunner runs units inside a database transaction. Keys become
// transaction-scoped advisory locks, released on commit or rollback.
type SQLRunner struct {
	db      *sql.DB
	timeout time.Duration
}

// NewSQLRunner constructs a Runner backed by db. A non-positive timeout
// selects DefaultTimeout.
func NewSQLRunner(db *sql.DB, timeout time.Duration) *SQLRunner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &SQLRunner{db: db, timeout: timeout}
}

func (r *SQLRunner) RunInTx(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	keys = normalizeKeys(keys)

	if outer, ok := stateFrom(ctx); ok {
		tx, _ := From(ctx)
		for _, k := range keys {
			if outer.held[k] {
				continue
			}
			if err := advisoryLock(ctx, tx, k); err != nil {
				return err
			}
			outer.held[k] = true
		}
		return fn(ctx)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	st := &state{held: make(map[string]bool, len(keys))}
	for _, k := range keys {
		if err := advisoryLock(ctx, tx, k); err != nil {
			return err
		}
		st.held[k] = true
	}

	if err := fn(withState(WithTx(ctx, tx), st)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "commit transaction")
	}
	for _, hook := range st.hooks {
		hook()
	}
	return nil
}

func advisoryLock(ctx context.Context, tx *sql.Tx, key string) error {
	if tx == nil {
		return dErrors.New(dErrors.CodeInternal, "advisory lock requested outside a transaction")
	}
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		if ctx.Err() != nil {
			return dErrors.Wrap(err, dErrors.CodeTimeout, "advisory lock timed out")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "advisory lock")
	}
	return nil
}

// Executor is the subset of *sql.DB and *sql.Tx stores need.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ExecutorFrom returns the active transaction when ctx carries one, else db.
func ExecutorFrom(ctx context.Context, db *sql.DB) Executor {
	if tx, ok := From(ctx); ok {
		return tx
	}
	return db
}
