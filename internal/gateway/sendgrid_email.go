package gateway

import (
	"context"
	"fmt"

	"relaydesk/internal/domain/channel"
	relay_errors "relaydesk/pkg/errors"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const threadTokenHeader = "X-Thread-Token"

// SendGridEmailTransport dispatches outbound mail via SendGrid.
type SendGridEmailTransport struct {
	apiKey string
}

func NewSendGridEmailTransport(apiKey string) *SendGridEmailTransport {
	return &SendGridEmailTransport{apiKey: apiKey}
}

func (t *SendGridEmailTransport) Send(ctx context.Context, ch channel.Channel, msg EmailSend) (SendResult, error) {
	if t.apiKey == "" {
		return SendResult{}, fmt.Errorf("%w: sendgrid api key not configured", relay_errors.ErrTransport)
	}

	from := mail.NewEmail(msg.FromName, ch.SenderIdentifier)
	to := mail.NewEmail("", msg.ToAddress)
	m := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, msg.Body)
	m.SetHeader(threadTokenHeader, msg.ThreadToken)

	client := sendgrid.NewSendClient(t.apiKey)
	response, err := client.Send(m)
	if err != nil {
		return SendResult{}, fmt.Errorf("%w: %v", relay_errors.ErrTransport, err)
	}
	if response.StatusCode >= 400 {
		return SendResult{}, fmt.Errorf("%w: sendgrid returned %d", relay_errors.ErrTransport, response.StatusCode)
	}

	messageID := ""
	if ids, ok := response.Headers["X-Message-Id"]; ok && len(ids) > 0 {
		messageID = ids[0]
	}
	return SendResult{ProviderMessageID: messageID}, nil
}
