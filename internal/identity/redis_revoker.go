package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRevokedPrefix = "session:revoked:"

// RedisRevoker stores revoked token ids as Redis keys that expire with the token.
type RedisRevoker struct {
	client *redis.Client
	prefix string
	nowF   func() time.Time
}

// NewRedisRevoker returns a RedisRevoker. An empty prefix uses "session:revoked:".
func NewRedisRevoker(client *redis.Client, prefix string) *RedisRevoker {
	if prefix == "" {
		prefix = defaultRevokedPrefix
	}
	return &RedisRevoker{client: client, prefix: prefix, nowF: func() time.Time { return time.Now().UTC() }}
}

// ConnectRedis parses url, opens a client and verifies it with PING.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, errors.New("redis url is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked: %w", err)
	}
	return n > 0, nil
}

func (r *RedisRevoker) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.nowF())
	if jti == "" || ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.prefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke %s: %w", jti, err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (r *RedisRevoker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
