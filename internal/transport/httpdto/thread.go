package httpdto

import (
	"time"

	"relaydesk/internal/domain/thread"
	"relaydesk/internal/services"
)

type WhatsAppThreadResponse struct {
	ID                 string     `json:"id"`
	ChannelID          string     `json:"channel_id"`
	RemotePhoneNumber  string     `json:"remote_phone_number"`
	RemoteDisplayName  string     `json:"remote_display_name,omitempty"`
	ContactType        string     `json:"contact_type,omitempty"`
	ContactID          string     `json:"contact_id,omitempty"`
	IsUnread           bool       `json:"is_unread"`
	LastMessagePreview string     `json:"last_message_preview,omitempty"`
	LastInboundAt      *time.Time `json:"last_inbound_at,omitempty"`
	LastOutboundAt     *time.Time `json:"last_outbound_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

type EmailThreadResponse struct {
	ID                  string     `json:"id"`
	ChannelID           string     `json:"channel_id"`
	Token               string     `json:"token"`
	Subject             string     `json:"subject"`
	ContactType         string     `json:"contact_type,omitempty"`
	ContactID           string     `json:"contact_id,omitempty"`
	LastInboundFrom     string     `json:"last_inbound_from,omitempty"`
	LastInboundAddress  string     `json:"last_inbound_address,omitempty"`
	LastInboundAt       *time.Time `json:"last_inbound_at,omitempty"`
	LastOutboundAddress string     `json:"last_outbound_address,omitempty"`
	LastOutboundAt      *time.Time `json:"last_outbound_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

type ConversationThreadResponse struct {
	ID        string     `json:"id"`
	UUID      string     `json:"uuid"`
	Label     string     `json:"label"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Active    bool       `json:"active"`
}

type StartConversationThreadRequest struct {
	Label string `json:"label" binding:"required"`
}

type StartConversationThreadResponse struct {
	Started        ConversationThreadResponse  `json:"started"`
	ClosedPrevious *ConversationThreadResponse `json:"closed_previous,omitempty"`
}

type ListWhatsAppThreadsResponse struct {
	Threads []WhatsAppThreadResponse `json:"threads"`
	Total   int64                    `json:"total"`
}

type ListEmailThreadsResponse struct {
	Threads []EmailThreadResponse `json:"threads"`
	Total   int64                 `json:"total"`
}

type ListConversationThreadsResponse struct {
	Threads []ConversationThreadResponse `json:"threads"`
}

type WhatsAppTimelineResponse struct {
	Thread          WhatsAppThreadResponse    `json:"thread"`
	Messages        []WhatsAppMessageResponse `json:"messages"`
	Total           int64                     `json:"total"`
	WindowOpen      bool                      `json:"window_open"`
	WindowExpiresAt *time.Time                `json:"window_expires_at,omitempty"`
}

type DeletionPreviewResponse struct {
	MessageCount            int64 `json:"message_count"`
	ConversationThreadCount int64 `json:"conversation_thread_count"`
}

func FromWhatsAppThread(t thread.WhatsAppThread) WhatsAppThreadResponse {
	resp := WhatsAppThreadResponse{
		ID:                t.ID.String(),
		ChannelID:         t.ChannelID.String(),
		RemotePhoneNumber: t.RemotePhoneNumber,
		IsUnread:          t.IsUnread,
		CreatedAt:         t.CreatedAt,
	}
	if t.RemoteDisplayName.Valid {
		resp.RemoteDisplayName = t.RemoteDisplayName.String
	}
	if t.ContactType.Valid {
		resp.ContactType = t.ContactType.String
	}
	if t.ContactID.Valid {
		resp.ContactID = t.ContactID.UUID.String()
	}
	if t.LastMessagePreview.Valid {
		resp.LastMessagePreview = t.LastMessagePreview.String
	}
	if t.LastInboundAt.Valid {
		at := t.LastInboundAt.Time
		resp.LastInboundAt = &at
	}
	if t.LastOutboundAt.Valid {
		at := t.LastOutboundAt.Time
		resp.LastOutboundAt = &at
	}
	return resp
}

func FromWhatsAppThreadSlice(threads []thread.WhatsAppThread) []WhatsAppThreadResponse {
	out := make([]WhatsAppThreadResponse, 0, len(threads))
	for _, t := range threads {
		out = append(out, FromWhatsAppThread(t))
	}
	return out
}

func FromEmailThread(t thread.EmailThread) EmailThreadResponse {
	resp := EmailThreadResponse{
		ID:        t.ID.String(),
		ChannelID: t.ChannelID.String(),
		Token:     t.Token,
		Subject:   t.Subject,
		CreatedAt: t.CreatedAt,
	}
	if t.ContactType.Valid {
		resp.ContactType = t.ContactType.String
	}
	if t.ContactID.Valid {
		resp.ContactID = t.ContactID.UUID.String()
	}
	if t.LastInboundFrom.Valid {
		resp.LastInboundFrom = t.LastInboundFrom.String
	}
	if t.LastInboundAddress.Valid {
		resp.LastInboundAddress = t.LastInboundAddress.String
	}
	if t.LastInboundAt.Valid {
		at := t.LastInboundAt.Time
		resp.LastInboundAt = &at
	}
	if t.LastOutboundAddress.Valid {
		resp.LastOutboundAddress = t.LastOutboundAddress.String
	}
	if t.LastOutboundAt.Valid {
		at := t.LastOutboundAt.Time
		resp.LastOutboundAt = &at
	}
	return resp
}

func FromEmailThreadSlice(threads []thread.EmailThread) []EmailThreadResponse {
	out := make([]EmailThreadResponse, 0, len(threads))
	for _, t := range threads {
		out = append(out, FromEmailThread(t))
	}
	return out
}

func FromConversationThread(t thread.ConversationThread) ConversationThreadResponse {
	resp := ConversationThreadResponse{
		ID:        t.ID.String(),
		UUID:      t.UUID.String(),
		Label:     t.Label,
		StartedAt: t.StartedAt,
		Active:    t.Active(),
	}
	if t.EndedAt.Valid {
		at := t.EndedAt.Time
		resp.EndedAt = &at
	}
	return resp
}

func FromConversationThreadSlice(threads []thread.ConversationThread) []ConversationThreadResponse {
	out := make([]ConversationThreadResponse, 0, len(threads))
	for _, t := range threads {
		out = append(out, FromConversationThread(t))
	}
	return out
}

func FromStartNewResult(res services.StartNewResult) StartConversationThreadResponse {
	resp := StartConversationThreadResponse{
		Started: FromConversationThread(res.Started),
	}
	if res.ClosedPrevious != nil {
		closed := FromConversationThread(*res.ClosedPrevious)
		resp.ClosedPrevious = &closed
	}
	return resp
}

func FromWhatsAppTimeline(t services.WhatsAppTimeline) WhatsAppTimelineResponse {
	return WhatsAppTimelineResponse{
		Thread:          FromWhatsAppThread(t.Thread),
		Messages:        FromWhatsAppMessageSlice(t.Messages),
		Total:           t.Total,
		WindowOpen:      t.WindowOpen,
		WindowExpiresAt: t.WindowExpiresAt,
	}
}
