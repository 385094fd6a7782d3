package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quocanhngo/chatcore/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultRedisChannel is the pub/sub channel shared by all instances
const DefaultRedisChannel = "chatcore:realtime"

// RedisBroker fans events out across instances with Redis Pub/Sub
type RedisBroker struct {
	rdb     *redis.Client
	channel string
	log     *logger.Logger
}

func NewRedisBroker(rdb *redis.Client, channel string, log *logger.Logger) *RedisBroker {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisBroker{rdb: rdb, channel: channel, log: log.Named("redis_broker")}
}

func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("redisBroker.Publish marshal: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("redisBroker.Publish: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, handler func(Event)) (func(), error) {
	pubsub := b.rdb.Subscribe(ctx, b.channel)
	// Wait for the subscription confirmation so no event published after return is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redisBroker.Subscribe: %w", err)
	}

	ch := pubsub.Channel()
	b.log.Info("Redis Pub/Sub subscriber started", zap.String("channel", b.channel))

	go func() {
		for msg := range ch {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.Warn("dropping malformed realtime event", zap.Error(err))
				continue
			}
			handler(ev)
		}
	}()

	return func() { _ = pubsub.Close() }, nil
}

// Close is a no-op: the redis client is owned by the caller
func (b *RedisBroker) Close() error {
	return nil
}
