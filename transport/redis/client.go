// Package redis provides a Redis pub/sub message bus and Redis backed keep-alive alarms.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix prefixes every channel and key.
const DefaultPrefix = "authbridge:"

// NewClient creates a client from a redis:// URL and checks the connection.
func NewClient(ctx context.Context, URL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}
