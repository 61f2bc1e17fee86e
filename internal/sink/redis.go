package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// SessionKeyPrefix prefixes the Redis keys holding session summaries.
const SessionKeyPrefix = "repwatch:session:"

// RedisSink publishes triggered events to a pub/sub channel and stores
// session summaries.
type RedisSink struct {
	client  *redis.Client
	channel string
}

// NewRedisSink creates a RedisSink on an existing client.
func NewRedisSink(client *redis.Client, channel string) *RedisSink {
	return &RedisSink{
		client:  client,
		channel: channel,
	}
}

// Check pings the server.
func (s *RedisSink) Check(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Show publishes triggered events. Other results are not sent.
func (s *RedisSink) Show(ctx context.Context, ev Event) error {
	if !ev.Result.Triggered {
		return nil
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Report stores the summary under SessionKeyPrefix+id and announces it on
// the channel.
func (s *RedisSink) Report(ctx context.Context, sum Summary) error {
	payload, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, SessionKeyPrefix+sum.SessionID, payload, 0)
	pipe.Publish(ctx, s.channel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store summary: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
