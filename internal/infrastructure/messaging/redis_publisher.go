package messaging

import (
	"context"
	"fmt"

	"github.com/tasyapp/billing/internal/domain/provider"
	"github.com/tasyapp/billing/pkg/messaging"
)

// redisEventPublisher publishes billing events on <prefix>:<topic> channels
type redisEventPublisher struct {
	redisClient messaging.RedisClient
	prefix      string
}

// NewRedisEventPublisher creates a Redis backed provider.EventPublisher
func NewRedisEventPublisher(client messaging.RedisClient, prefix string) provider.EventPublisher {
	return &redisEventPublisher{
		redisClient: client,
		prefix:      prefix,
	}
}

// Channel returns the Redis channel a topic is published on
func Channel(prefix, topic string) string {
	if prefix == "" {
		return topic
	}
	return fmt.Sprintf("%s:%s", prefix, topic)
}

func (p *redisEventPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	if payload == nil {
		return fmt.Errorf("empty payload for topic %s", topic)
	}

	if err := p.redisClient.Publish(ctx, Channel(p.prefix, topic), payload); err != nil {
		return fmt.Errorf("failed to publish %s: %w", topic, err)
	}
	return nil
}
