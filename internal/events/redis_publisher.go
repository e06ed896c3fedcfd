package events

import (
	"context"
	"encoding/json"
	"time"

	"relaydesk/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisPublisher broadcasts thread activity over Redis Pub/Sub, one
// topic per channel so clients subscribe only to what they can see.
// Publishing is best-effort: failures are logged and swallowed.
type RedisPublisher struct {
	client *redis.Client
	logger *logger.Logger
}

func NewRedisPublisher(client *redis.Client, l *logger.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, logger: l}
}

func (p *RedisPublisher) ThreadUpdated(ctx context.Context, channelID, threadID uuid.UUID) {
	event := ThreadUpdatedEvent{
		EventType:  EventTypeThreadUpdated,
		ChannelID:  channelID,
		ThreadID:   threadID,
		OccurredAt: time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorfCtx(ctx, "failed to marshal thread event: %v", err)
		return
	}

	if err := p.client.Publish(ctx, ChannelTopic(channelID), data).Err(); err != nil {
		p.logger.ErrorfCtx(ctx, "failed to publish thread event for %s: %v", threadID, err)
	}
}
