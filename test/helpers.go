// Package test contains helpers shared by tests across the module.
package test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func Context(t testing.TB) context.Context {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return ctx
}

// Redis returns a client for the server at REDIS_URL, skipping the test if it
// is not set. The database is flushed first.
func Redis(ctx context.Context, t testing.TB) *redis.Client {
	t.Helper()

	opts, err := redis.ParseURL(RedisURL(t))
	if err != nil {
		t.Fatalf("failed to parse redis url: %v", err)
	}

	rdb := redis.NewClient(opts)
	t.Cleanup(func() { _ = rdb.Close() })

	if err := rdb.FlushDB(ctx).Err(); err != nil {
		t.Fatal("failed to flush db")
	}

	return rdb
}

func RedisURL(t testing.TB) string {
	t.Helper()

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL is not set")
	}

	return redisURL
}

// MiniRedis starts an in-memory Redis whose clock is frozen at now, so that
// TIME replies are predictable.
func MiniRedis(t testing.TB, now time.Time) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	mr.SetTime(now)

	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, rdb
}

func MiniRedisURL(t testing.TB) string {
	t.Helper()

	mr := miniredis.RunT(t)
	return "redis://" + mr.Addr()
}
