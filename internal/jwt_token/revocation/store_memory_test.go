package revocation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
)

func TestInMemoryTRL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	trl := NewInMemoryTRL(func() time.Time { return now })
	alice := domain.Identity{0x0a}

	revoked, err := trl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, trl.Revoke(ctx, Entry{JTI: "jti-1", Subject: alice, ExpiresAt: now.Add(time.Minute)}))
	revoked, err = trl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, err = trl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked, "entries lapse with the token")
	assert.Empty(t, trl.entries)
}

func TestInMemoryTRL_IgnoresDeadEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	trl := NewInMemoryTRL(func() time.Time { return now })

	require.NoError(t, trl.Revoke(ctx, Entry{ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, trl.Revoke(ctx, Entry{JTI: "old", ExpiresAt: now.Add(-time.Second)}))
	assert.Empty(t, trl.entries)
}

func TestInMemoryTRL_RequiresExpiry(t *testing.T) {
	err := NewInMemoryTRL(nil).Revoke(context.Background(), Entry{JTI: "jti"})
	assert.True(t, errors.Is(err, sentinel.ErrInvalidState))
}
