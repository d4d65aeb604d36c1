package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/viant/authbridge"
	"github.com/viant/authbridge/transport"
)

// Bus publishes messages on Redis channels named prefix + channel.
type Bus struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

func (b *Bus) channel(ch authbridge.Channel) string { return b.prefix + string(ch) }

// Send publishes message.
func (b *Bus) Send(ctx context.Context, message *authbridge.Message) error {
	data, err := transport.Encode(message)
	if err != nil {
		return err
	}
	if err = b.client.Publish(ctx, b.channel(message.Channel), data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s message: %w", message.Channel, err)
	}
	return nil
}

// Subscribe registers handler; it returns once the subscription is confirmed by Redis.
func (b *Bus) Subscribe(ctx context.Context, channel authbridge.Channel, handler transport.Handler) (transport.Subscription, error) {
	pubSub := b.client.Subscribe(ctx, b.channel(channel))
	if _, err := pubSub.Receive(ctx); err != nil {
		_ = pubSub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	messages := pubSub.Channel()
	go func() {
		for msg := range messages {
			message, err := transport.Decode([]byte(msg.Payload))
			if err != nil {
				b.logger.Warn("dropping invalid message", "channel", channel, "error", err)
				continue
			}
			handler(context.Background(), message)
		}
	}()
	return pubSub, nil
}

// New creates a Redis bus.
func New(client *redis.Client, options ...Option) *Bus {
	ret := &Bus{client: client, prefix: DefaultPrefix, logger: slog.Default()}
	for _, option := range options {
		option(ret)
	}
	return ret
}
