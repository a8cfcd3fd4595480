package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// seenTTL bounds how long a notification hash is remembered. The
// listener reconnects with backoff and the relay replays recent
// notifications on reconnect, so duplicates cluster within minutes.
const seenTTL = 30 * time.Minute

// Client deduplicates transaction notifications across processes. Every
// instance watching the same address shares the seen-set, so a replayed
// notification triggers at most one refresh cluster-wide.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func seenKey(address, txHash string) string {
	return fmt.Sprintf("tonkit:seen:%s:%s", address, txHash)
}

// MarkSeen records a notification hash and reports whether this call was
// the first to see it. Returns true exactly once per hash within the TTL
// window.
func (c *Client) MarkSeen(ctx context.Context, address, txHash string) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, seenKey(address, txHash), "1", seenTTL).Result()
	if err != nil {
		return false, fmt.Errorf("setnx failed: %w", err)
	}
	return ok, nil
}
