package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "cvflow:jobs:"

// Channel is the Redis channel carrying events of one job.
func Channel(jobID fmt.Stringer) string { return channelPrefix + jobID.String() + ":events" }

// RedisPublisher lets standalone workers reach API processes.
type RedisPublisher struct {
	client redis.UniversalClient
}

func NewRedisPublisher(client redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, Channel(e.JobID), payload).Err()
}

// RedisBridge forwards every job channel into the local hub.
type RedisBridge struct {
	client redis.UniversalClient
	hub    *Hub
	log    *slog.Logger
}

func NewRedisBridge(client redis.UniversalClient, hub *Hub, log *slog.Logger) *RedisBridge {
	return &RedisBridge{client: client, hub: hub, log: log}
}

// Run blocks until ctx is done.
func (b *RedisBridge) Run(ctx context.Context) error {
	ps := b.client.PSubscribe(ctx, channelPrefix+"*:events")
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("redis psubscribe: %w", err)
	}
	ch := ps.Channel()
	b.log.Info("progress bridge started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil || !strings.HasPrefix(msg.Channel, channelPrefix) {
				b.log.Warn("drop malformed progress event", "channel", msg.Channel, "error", err)
				continue
			}
			_ = b.hub.Publish(ctx, e)
		}
	}
}
