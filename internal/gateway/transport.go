package gateway

import (
	"context"

	"relaydesk/internal/domain/channel"
)

// SendResult is what a provider hands back on accepted dispatch.
type SendResult struct {
	ProviderMessageID string
}

// WhatsAppSend is an outbound WhatsApp payload. Either Body or
// TemplateName is set, never both.
type WhatsAppSend struct {
	To             string
	Body           string
	TemplateName   string
	TemplateParams []string
}

// EmailSend is an outbound email payload. ThreadToken is embedded so
// provider replies can be routed back to the originating thread.
type EmailSend struct {
	FromName    string
	FromAddress string
	ToAddress   string
	Subject     string
	Body        string
	ThreadToken string
}

type WhatsAppTransport interface {
	Send(ctx context.Context, ch channel.Channel, msg WhatsAppSend) (SendResult, error)
}

type EmailTransport interface {
	Send(ctx context.Context, ch channel.Channel, msg EmailSend) (SendResult, error)
}
