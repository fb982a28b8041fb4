// Package redis provides a Redis-backed store.Leaser.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/phrazzld/scry-materials/internal/config"
	"github.com/phrazzld/scry-materials/internal/store"
)

const keyPrefix = "scry:lease:video:"

// releaseScript deletes the key only if it still holds our token, so a lease
// that expired and was taken by another worker is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Client wraps the Redis connection used for leases.
type Client struct {
	rdb *redis.Client
}

// NewClient parses cfg.URL and verifies the connection.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis URL cannot be empty")
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Leaser hands out per-video leases with SET NX PX.
type Leaser struct {
	rdb *redis.Client
}

var _ store.Leaser = (*Leaser)(nil)

// NewLeaser creates a Leaser on the client's connection.
func NewLeaser(client *Client) *Leaser {
	return &Leaser{rdb: client.rdb}
}

// Acquire implements store.Leaser.
func (l *Leaser) Acquire(ctx context.Context, videoID string, ttl time.Duration) (store.Lease, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("lease ttl must be positive, got %s", ttl)
	}

	key := leaseKey(videoID)
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("setnx failed: %w", err)
	}
	if !ok {
		return nil, store.ErrLeaseHeld
	}

	return &lease{rdb: l.rdb, key: key, token: token}, nil
}

type lease struct {
	rdb   *redis.Client
	key   string
	token string
}

// Release implements store.Lease.
func (l *lease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("failed to release lease %s: %w", l.key, err)
	}
	return nil
}

func leaseKey(videoID string) string {
	return keyPrefix + videoID
}
