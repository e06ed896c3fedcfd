package httpdto

import (
	"strings"
	"time"

	"relaydesk/internal/domain/message"
	"relaydesk/internal/services"
)

type SendWhatsAppMessageRequest struct {
	ThreadID       string   `json:"thread_id"`
	ChannelID      string   `json:"channel_id"`
	To             string   `json:"to"`
	Body           string   `json:"body"`
	TemplateName   string   `json:"template_name"`
	TemplateParams []string `json:"template_params"`
	IdempotencyKey string   `json:"idempotency_key"`
}

type SendEmailMessageRequest struct {
	ThreadID       string `json:"thread_id"`
	ChannelID      string `json:"channel_id"`
	To             string `json:"to"`
	Subject        string `json:"subject"`
	Body           string `json:"body" binding:"required"`
	FromName       string `json:"from_name"`
	IdempotencyKey string `json:"idempotency_key"`
}

type AttachmentResponse struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type,omitempty"`
	Title    string `json:"title,omitempty"`
}

type WhatsAppMessageResponse struct {
	ID                   string               `json:"id"`
	ThreadID             string               `json:"thread_id"`
	ConversationThreadID string               `json:"conversation_thread_id,omitempty"`
	Direction            string               `json:"direction"`
	Type                 string               `json:"type"`
	Body                 string               `json:"body,omitempty"`
	TemplateName         string               `json:"template_name,omitempty"`
	TemplateParams       []string             `json:"template_params,omitempty"`
	Status               string               `json:"status"`
	ProviderMessageID    string               `json:"provider_message_id,omitempty"`
	SentAt               *time.Time           `json:"sent_at,omitempty"`
	DeliveredAt          *time.Time           `json:"delivered_at,omitempty"`
	ReadAt               *time.Time           `json:"read_at,omitempty"`
	CreatedAt            time.Time            `json:"created_at"`
	Attachments          []AttachmentResponse `json:"attachments,omitempty"`
}

type EmailMessageResponse struct {
	ID          string               `json:"id"`
	ThreadID    string               `json:"thread_id"`
	Direction   string               `json:"direction"`
	FromName    string               `json:"from_name,omitempty"`
	FromAddress string               `json:"from_address"`
	ToAddress   string               `json:"to_address"`
	Subject     string               `json:"subject"`
	Body        string               `json:"body"`
	Status      string               `json:"status"`
	SentAt      *time.Time           `json:"sent_at,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	Attachments []AttachmentResponse `json:"attachments,omitempty"`
}

type ListWhatsAppMessagesResponse struct {
	Messages []WhatsAppMessageResponse `json:"messages"`
	Total    int64                     `json:"total"`
}

type ListEmailMessagesResponse struct {
	Messages []EmailMessageResponse `json:"messages"`
	Total    int64                  `json:"total"`
}

type AttachmentURLResponse struct {
	URL string `json:"url"`
}

type SearchMessagesResponse struct {
	WhatsApp []WhatsAppMessageResponse `json:"whatsapp"`
	Email    []EmailMessageResponse    `json:"email"`
}

func fromAttachments(attachments []message.Attachment) []AttachmentResponse {
	if len(attachments) == 0 {
		return nil
	}
	out := make([]AttachmentResponse, 0, len(attachments))
	for _, a := range attachments {
		resp := AttachmentResponse{ID: a.ID.String(), URL: a.URL}
		if a.MimeType.Valid {
			resp.MimeType = a.MimeType.String
		}
		if a.Title.Valid {
			resp.Title = a.Title.String
		}
		out = append(out, resp)
	}
	return out
}

func FromWhatsAppMessage(m message.WhatsAppMessage) WhatsAppMessageResponse {
	resp := WhatsAppMessageResponse{
		ID:          m.ID.String(),
		ThreadID:    m.ThreadID.String(),
		Direction:   string(m.Direction),
		Type:        string(m.Type),
		Status:      string(m.Status),
		CreatedAt:   m.CreatedAt,
		Attachments: fromAttachments(m.Attachments),
	}
	if m.ConversationThreadID.Valid {
		resp.ConversationThreadID = m.ConversationThreadID.UUID.String()
	}
	if m.Body.Valid {
		resp.Body = m.Body.String
	}
	if m.TemplateName.Valid {
		resp.TemplateName = m.TemplateName.String
	}
	if m.TemplateParams.Valid {
		resp.TemplateParams = strings.Split(m.TemplateParams.String, "\x1f")
	}
	if m.ProviderMessageID.Valid {
		resp.ProviderMessageID = m.ProviderMessageID.String
	}
	if m.SentAt.Valid {
		at := m.SentAt.Time
		resp.SentAt = &at
	}
	if m.DeliveredAt.Valid {
		at := m.DeliveredAt.Time
		resp.DeliveredAt = &at
	}
	if m.ReadAt.Valid {
		at := m.ReadAt.Time
		resp.ReadAt = &at
	}
	return resp
}

func FromWhatsAppMessageSlice(messages []message.WhatsAppMessage) []WhatsAppMessageResponse {
	out := make([]WhatsAppMessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, FromWhatsAppMessage(m))
	}
	return out
}

func FromEmailMessage(m message.EmailMessage) EmailMessageResponse {
	resp := EmailMessageResponse{
		ID:          m.ID.String(),
		ThreadID:    m.ThreadID.String(),
		Direction:   string(m.Direction),
		FromAddress: m.FromAddress,
		ToAddress:   m.ToAddress,
		Subject:     m.Subject,
		Body:        m.Body,
		Status:      string(m.Status),
		CreatedAt:   m.CreatedAt,
		Attachments: fromAttachments(m.Attachments),
	}
	if m.FromName.Valid {
		resp.FromName = m.FromName.String
	}
	if m.SentAt.Valid {
		at := m.SentAt.Time
		resp.SentAt = &at
	}
	return resp
}

func FromEmailMessageSlice(messages []message.EmailMessage) []EmailMessageResponse {
	out := make([]EmailMessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, FromEmailMessage(m))
	}
	return out
}

func FromSearchResults(res services.SearchResults) SearchMessagesResponse {
	return SearchMessagesResponse{
		WhatsApp: FromWhatsAppMessageSlice(res.WhatsApp),
		Email:    FromEmailMessageSlice(res.Email),
	}
}
