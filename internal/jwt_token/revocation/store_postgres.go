package revocation

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresTRL persists revocations in token_revocations. Rows past their
// expiry are ignored by IsRevoked and are safe to sweep.
type PostgresTRL struct {
	db    *sql.DB
	clock Clock
}

func NewPostgresTRL(db *sql.DB, clock Clock) *PostgresTRL {
	if clock == nil {
		clock = time.Now
	}
	return &PostgresTRL{db: db, clock: clock}
}

func (t *PostgresTRL) Revoke(ctx context.Context, e Entry) error {
	live, err := e.live(t.clock())
	if err != nil || !live {
		return err
	}
	_, err = t.db.ExecContext(ctx, `
		INSERT INTO token_revocations (jti, subject, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (jti) DO NOTHING`,
		e.JTI, e.Subject.String(), e.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("insert token revocation: %w", err)
	}
	return nil
}

func (t *PostgresTRL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := t.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM token_revocations WHERE jti = $1 AND expires_at > $2)`,
		jti, t.clock().UTC()).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("query token revocation: %w", err)
	}
	return revoked, nil
}
