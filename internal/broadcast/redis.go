package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const channelPattern = "users.*"

// RedisBroadcaster publishes notifications on Redis pub/sub so every
// instance's RedisRelay can reach its local stream subscribers.
type RedisBroadcaster struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisBroadcaster(client redis.UniversalClient, prefix string) *RedisBroadcaster {
	return &RedisBroadcaster{client: client, prefix: prefix}
}

func (b *RedisBroadcaster) Broadcast(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := b.client.Publish(ctx, b.prefix+n.Channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// RedisRelay forwards notifications received from Redis into a local Hub.
type RedisRelay struct {
	client redis.UniversalClient
	prefix string
	hub    *Hub
	logger *slog.Logger
}

func NewRedisRelay(client redis.UniversalClient, prefix string, hub *Hub, logger *slog.Logger) *RedisRelay {
	return &RedisRelay{client: client, prefix: prefix, hub: hub, logger: logger}
}

// Run blocks until ctx is cancelled. go-redis reconnects the underlying
// subscription on its own.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.PSubscribe(ctx, r.prefix+channelPattern)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.prefix+channelPattern, err)
	}
	r.logger.Info("redis relay subscribed", "pattern", r.prefix+channelPattern)

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			r.forward(ctx, msg.Payload)
		}
	}
}

func (r *RedisRelay) forward(ctx context.Context, payload string) {
	n, err := DecodeNotification([]byte(payload))
	if err != nil {
		r.logger.Warn("dropping malformed relay message", "error", err)
		return
	}
	_ = r.hub.Broadcast(ctx, n)
}

// DecodeNotification parses and sanity-checks a wire notification.
func DecodeNotification(data []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return Notification{}, fmt.Errorf("failed to decode notification: %w", err)
	}
	switch n.Name {
	case ProjectCreated, ProjectUpdated:
		if n.Project == nil {
			return Notification{}, fmt.Errorf("%s notification without project", n.Name)
		}
	case ProjectDeleted:
		if n.Deleted == nil {
			return Notification{}, fmt.Errorf("%s notification without payload", n.Name)
		}
	default:
		return Notification{}, fmt.Errorf("unknown notification %q", n.Name)
	}
	if n.Channel == "" {
		return Notification{}, fmt.Errorf("notification without channel")
	}
	return n, nil
}

var _ Broadcaster = (*RedisBroadcaster)(nil)
