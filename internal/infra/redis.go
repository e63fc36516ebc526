package infra

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects the Redis instance that holds browser session
// credentials, idempotent KYC submissions and OTP attempt counters. An empty
// url returns a nil client: credentials then stay in process memory and the
// idempotency and attempt guards pass requests through.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping session redis: %w", err)
	}
	return client, nil
}
