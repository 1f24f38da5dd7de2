package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the redis channel changes are published on
const DefaultChannel = "fog:changes"

// RedisPublisher publishes changes as JSON on a redis channel
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// OpenRedis opens a redis client, nil when addr is empty
func OpenRedis(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// NewRedisPublisher creates a publisher on channel. An empty channel selects
// DefaultChannel.
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

// Publish implements Publisher
func (p *RedisPublisher) Publish(ctx context.Context, change Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to encode change: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish change on %s: %w", p.channel, err)
	}
	return nil
}

// Close closes the redis client
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
