package events

import (
	"time"

	"github.com/google/uuid"
)

// Event type constants, format: domain.action
const (
	EventTypeThreadUpdated = "thread.updated"
)

// Redis channel prefixes
const (
	ChannelPrefixChannel = "channel:"
)

// ThreadUpdatedEvent tells listeners that a thread under the channel
// changed (new message, read state, rollup) and should be refetched.
type ThreadUpdatedEvent struct {
	EventType  string    `json:"event_type"`
	ChannelID  uuid.UUID `json:"channel_id"`
	ThreadID   uuid.UUID `json:"thread_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func ChannelTopic(channelID uuid.UUID) string {
	return ChannelPrefixChannel + channelID.String()
}
