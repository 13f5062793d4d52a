package tx

import (
	"context"
	"sort"
	"sync"
	"time"

	dErrors "kycgate/pkg/domain-errors"
)

// numShards spreads keys over a fixed mutex array. Unrelated keys may share a
// shard; that only costs contention, never correctness.
const numShards = 128

// DefaultTimeout bounds a unit when the caller set no deadline.
const DefaultTimeout = 5 * time.Second

// ShardedRunner serializes in-memory units with sharded mutexes.
type ShardedRunner struct {
	shards  [numShards]sync.Mutex
	timeout time.Duration
}

// ShardedOption configures a ShardedRunner.
type ShardedOption func(*ShardedRunner)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) ShardedOption {
	return func(r *ShardedRunner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewShardedRunner constructs an in-memory Runner.
func NewShardedRunner(opts ...ShardedOption) *ShardedRunner {
	r := &ShardedRunner{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *ShardedRunner) RunInTx(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	keys = normalizeKeys(keys)

	if outer, ok := stateFrom(ctx); ok {
		for _, k := range keys {
			if !outer.held[k] {
				// Acquiring a new shard here could invert the lock order.
				return dErrors.Newf(dErrors.CodeInternal, "nested unit requested unheld key %q", k)
			}
		}
		return fn(ctx)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	shards := r.selectShards(keys)
	for _, s := range shards {
		r.shards[s].Lock()
	}
	unlock := func() {
		for i := len(shards) - 1; i >= 0; i-- {
			r.shards[shards[i]].Unlock()
		}
	}

	if err := ctx.Err(); err != nil {
		unlock()
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	st := &state{held: make(map[string]bool, len(keys))}
	for _, k := range keys {
		st.held[k] = true
	}
	err := fn(withState(ctx, st))
	unlock()
	if err != nil {
		return err
	}
	for _, hook := range st.hooks {
		hook()
	}
	return nil
}

// selectShards maps keys to a sorted, de-duplicated shard list.
func (r *ShardedRunner) selectShards(keys []string) []int {
	seen := make(map[int]bool, len(keys))
	out := make([]int, 0, len(keys))
	for _, k := range keys {
		s := int(hashKey(k) % numShards)
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Ints(out)
	return out
}

// hashKey is FNV-1a.
func hashKey(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
