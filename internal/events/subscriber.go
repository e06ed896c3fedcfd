package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// Subscriber tails thread events for one or more channels. Used by
// sidecar consumers (notification fanout, cache invalidation).
type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Listen blocks until ctx is cancelled, invoking handler for every
// decodable event. Undecodable payloads are skipped.
func (s *Subscriber) Listen(ctx context.Context, topics []string, handler func(ThreadUpdatedEvent)) error {
	pubsub := s.client.Subscribe(ctx, topics...)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event ThreadUpdatedEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			handler(event)
		}
	}
}
