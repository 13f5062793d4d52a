//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// RedisContainer backs the revocation list, the rate limiter and the audit
// stream sink in integration tests.
type RedisContainer struct {
	Container testcontainers.Container
	// Addr is a redis:// URL, the same shape REDIS_URL takes.
	Addr   string
	Client *redis.Client
}

// NewRedisContainer starts Redis and registers cleanup on t.
func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get redis connection string: %v", err)
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("failed to parse redis URL %q: %v", url, err)
	}
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("failed to ping redis: %v", err)
	}
	return &RedisContainer{Container: container, Addr: url, Client: client}
}

// FlushAll drops every key so each test starts with an empty stream and
// revocation set.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	return r.Client.FlushAll(ctx).Err()
}

// StreamActions returns the action field of every entry in an audit stream,
// oldest first.
func (r *RedisContainer) StreamActions(ctx context.Context, stream string) ([]string, error) {
	entries, err := r.Client.XRange(ctx, stream, "-", "+").Result()
	if err != nil {
		return nil, err
	}
	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		if action, ok := e.Values["action"].(string); ok {
			actions = append(actions, action)
		}
	}
	return actions, nil
}
