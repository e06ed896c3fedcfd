package httpdto

import (
	"time"

	"relaydesk/internal/domain/channel"
)

type CreateChannelRequest struct {
	Name             string `json:"name" binding:"required"`
	Type             string `json:"type" binding:"required"`
	Provider         string `json:"provider"`
	SenderIdentifier string `json:"sender_identifier" binding:"required"`
	Visibility       string `json:"visibility"`
}

type ChannelResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	Provider         string    `json:"provider"`
	SenderIdentifier string    `json:"sender_identifier"`
	Visibility       string    `json:"visibility"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
}

type ListChannelsResponse struct {
	Channels []ChannelResponse `json:"channels"`
}

func FromChannel(c channel.Channel) ChannelResponse {
	return ChannelResponse{
		ID:               c.ID.String(),
		Name:             c.Name,
		Type:             string(c.Type),
		Provider:         c.Provider,
		SenderIdentifier: c.SenderIdentifier,
		Visibility:       string(c.Visibility),
		IsActive:         c.IsActive,
		CreatedAt:        c.CreatedAt,
	}
}

func FromChannelSlice(channels []channel.Channel) []ChannelResponse {
	out := make([]ChannelResponse, 0, len(channels))
	for _, c := range channels {
		out = append(out, FromChannel(c))
	}
	return out
}
