package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "kycgate:trl:"

// RedisTRL shares revocation state between instances. Each key holds the
// subject and expires with the token, so the set never outgrows the live
// token population.
type RedisTRL struct {
	client *redis.Client
	clock  Clock
}

func NewRedisTRL(client *redis.Client) *RedisTRL {
	return &RedisTRL{client: client, clock: time.Now}
}

func (t *RedisTRL) Revoke(ctx context.Context, e Entry) error {
	live, err := e.live(t.clock())
	if err != nil || !live {
		return err
	}
	err = t.client.SetArgs(ctx, keyPrefix+e.JTI, e.Subject.String(), redis.SetArgs{
		Mode:     "NX",
		ExpireAt: e.ExpiresAt,
	}).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("set token revocation: %w", err)
	}
	return nil
}

func (t *RedisTRL) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	n, err := t.client.Exists(ctx, keyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return n > 0, nil
}
