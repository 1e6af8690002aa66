package events

import (
	"context"
	"encoding/json"
	"log"

	redis "github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel the dashboard subscribes to.
const DefaultChannel = "ingest.events"

// RedisEmitter publishes events to a Redis pub/sub channel.
type RedisEmitter struct {
	client  *redis.Client
	channel string
}

// NewRedisEmitter connects a Redis-backed emitter. An empty channel uses
// DefaultChannel.
func NewRedisEmitter(addr, password string, db int, channel string) *RedisEmitter {
	if channel == "" {
		channel = DefaultChannel
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisEmitter{client: client, channel: channel}
}

// Ping verifies connectivity.
func (e *RedisEmitter) Ping(ctx context.Context) error {
	return e.client.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (e *RedisEmitter) Close() error {
	return e.client.Close()
}

// Emit publishes the event as JSON. Publish failures are logged and
// swallowed: losing a progress event must never fail an ingestion run.
func (e *RedisEmitter) Emit(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("events: failed to marshal %s: %v", event.Name, err)
		return
	}
	if err := e.client.Publish(ctx, e.channel, payload).Err(); err != nil {
		log.Printf("events: failed to publish %s: %v", event.Name, err)
	}
}
