package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Connect parses redisURL, opens a client and verifies it with a ping.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}
