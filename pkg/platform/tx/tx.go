// Package tx provides the serialization boundary every command runs inside.
//
// A Runner executes a function while holding a set of named keys (for example
// "op:7" or "identity:0xab..."). Two commands sharing a key never interleave;
// commands with disjoint keys run concurrently. The memory Runner shards keys
// over a fixed mutex array; the SQL Runner opens a database transaction and
// takes transaction-scoped advisory locks. Both run AfterCommit hooks only
// once the unit succeeded, so notifications never describe rolled-back state.
package tx

import (
	"context"
	"database/sql"
	"sort"
)

// Runner executes fn atomically with respect to every other call that shares
// one of keys. Nested calls reuse the outer unit.
type Runner interface {
	RunInTx(ctx context.Context, keys []string, fn func(ctx context.Context) error) error
}

type ctxKey struct{}

var txKey = ctxKey{}

type stateKey struct{}

// state tracks the keys held and the hooks queued by the active unit.
type state struct {
	held  map[string]bool
	hooks []func()
}

func withState(ctx context.Context, st *state) context.Context {
	return context.WithValue(ctx, stateKey{}, st)
}

func stateFrom(ctx context.Context) (*state, bool) {
	st, ok := ctx.Value(stateKey{}).(*state)
	return st, ok
}

// AfterCommit queues hook to run once the enclosing unit commits. Outside a
// unit the hook runs immediately.
func AfterCommit(ctx context.Context, hook func()) {
	if st, ok := stateFrom(ctx); ok {
		st.hooks = append(st.hooks, hook)
		return
	}
	hook()
}

// InTx reports whether ctx belongs to an active unit.
func InTx(ctx context.Context) bool {
	_, ok := stateFrom(ctx)
	return ok
}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// normalizeKeys sorts and de-duplicates keys so every caller acquires locks
// in the same global order.
func normalizeKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
