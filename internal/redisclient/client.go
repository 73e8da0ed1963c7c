package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/rate_limit.lua
var rateLimitScript string

type Client struct {
	rdb             *redis.Client
	rateLimitScript *redis.Script
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:             rdb,
		rateLimitScript: redis.NewScript(rateLimitScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func consumedKey(txRef string) string {
	return "consumed:" + strings.ToLower(txRef)
}

// IsConsumed reports whether a payment reference is known to be consumed.
// This is a cache in front of the order ledger; a miss here proves
// nothing, the ledger's unique constraint is the final authority.
func (c *Client) IsConsumed(ctx context.Context, txRef string) (bool, error) {
	n, err := c.rdb.Exists(ctx, consumedKey(txRef)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkConsumed records a consumed payment reference after a successful
// commit. Kept without TTL: references are consumed forever.
func (c *Client) MarkConsumed(ctx context.Context, txRef, orderID string) error {
	return c.rdb.Set(ctx, consumedKey(txRef), orderID, 0).Err()
}

// Allow runs the fixed-window rate limiter for a caller key.
// Returns true if the request is within limit.
func (c *Client) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, time.Now().Unix()/int64(window.Seconds()))

	result, err := c.rateLimitScript.Run(ctx, c.rdb, []string{redisKey}, limit, int(window.Seconds())).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit script failed: %w", err)
	}

	allowed, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected script result type")
	}

	return allowed == 1, nil
}
