package tx

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "kycgate/pkg/domain-errors"
)

func TestShardedRunner_SerializesSharedKeys(t *testing.T) {
	r := NewShardedRunner()
	ctx := context.Background()

	var inside atomic.Int32
	var overlap atomic.Bool
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.RunInTx(ctx, []string{"op:1"}, func(context.Context) error {
				if inside.Add(1) > 1 {
					overlap.Store(true)
				}
				time.Sleep(time.Millisecond)
				inside.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.False(t, overlap.Load(), "units sharing a key must not interleave")
}

func TestShardedRunner_NoDeadlockOnReversedKeyOrder(t *testing.T) {
	r := NewShardedRunner()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			keys := []string{"op:1", "identity:a"}
			if i%2 == 0 {
				keys = []string{"identity:a", "op:1"}
			}
			require.NoError(t, r.RunInTx(ctx, keys, func(context.Context) error { return nil }))
		}()
	}
	wg.Wait()
}

func TestShardedRunner_AfterCommitHooks(t *testing.T) {
	r := NewShardedRunner()
	ctx := context.Background()

	t.Run("runs hooks after success", func(t *testing.T) {
		var fired bool
		err := r.RunInTx(ctx, []string{"k"}, func(ctx context.Context) error {
			AfterCommit(ctx, func() { fired = true })
			assert.False(t, fired, "hook must not run before commit")
			return nil
		})
		require.NoError(t, err)
		assert.True(t, fired)
	})

	t.Run("drops hooks on failure", func(t *testing.T) {
		var fired bool
		boom := errors.New("boom")
		err := r.RunInTx(ctx, []string{"k"}, func(ctx context.Context) error {
			AfterCommit(ctx, func() { fired = true })
			return boom
		})
		require.ErrorIs(t, err, boom)
		assert.False(t, fired)
	})

	t.Run("runs immediately outside a unit", func(t *testing.T) {
		var fired bool
		AfterCommit(ctx, func() { fired = true })
		assert.True(t, fired)
	})
}

func TestShardedRunner_Nesting(t *testing.T) {
	r := NewShardedRunner()
	ctx := context.Background()

	t.Run("reuses held keys", func(t *testing.T) {
		err := r.RunInTx(ctx, []string{"op:1", "identity:a"}, func(ctx context.Context) error {
			return r.RunInTx(ctx, []string{"identity:a"}, func(ctx context.Context) error {
				assert.True(t, InTx(ctx))
				return nil
			})
		})
		require.NoError(t, err)
	})

	t.Run("rejects unheld keys", func(t *testing.T) {
		err := r.RunInTx(ctx, []string{"op:1"}, func(ctx context.Context) error {
			return r.RunInTx(ctx, []string{"identity:b"}, func(context.Context) error { return nil })
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func TestShardedRunner_CancelledContext(t *testing.T) {
	r := NewShardedRunner()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := r.RunInTx(ctx, []string{"k"}, func(context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
	assert.False(t, called)
}

func TestNormalizeKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, normalizeKeys([]string{"b", "", "a", "b"}))
}
