package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"relaydesk/internal/domain/channel"
	relay_errors "relaydesk/pkg/errors"
)

// WhatsAppCloudTransport dispatches messages through the Meta Cloud
// API. The channel's SenderIdentifier carries the business phone
// number id used in the request path.
type WhatsAppCloudTransport struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

func NewWhatsAppCloudTransport(baseURL, accessToken string) *WhatsAppCloudTransport {
	return &WhatsAppCloudTransport{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

type cloudTextBody struct {
	Body string `json:"body"`
}

type cloudTemplateLanguage struct {
	Code string `json:"code"`
}

type cloudTemplateParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type cloudTemplateComponent struct {
	Type       string                   `json:"type"`
	Parameters []cloudTemplateParameter `json:"parameters"`
}

type cloudTemplate struct {
	Name       string                   `json:"name"`
	Language   cloudTemplateLanguage    `json:"language"`
	Components []cloudTemplateComponent `json:"components,omitempty"`
}

type cloudSendRequest struct {
	MessagingProduct string         `json:"messaging_product"`
	To               string         `json:"to"`
	Type             string         `json:"type"`
	Text             *cloudTextBody `json:"text,omitempty"`
	Template         *cloudTemplate `json:"template,omitempty"`
}

type cloudSendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (t *WhatsAppCloudTransport) Send(ctx context.Context, ch channel.Channel, msg WhatsAppSend) (SendResult, error) {
	req := cloudSendRequest{
		MessagingProduct: "whatsapp",
		To:               msg.To,
	}
	if msg.TemplateName != "" {
		req.Type = "template"
		req.Template = &cloudTemplate{
			Name:     msg.TemplateName,
			Language: cloudTemplateLanguage{Code: "en"},
		}
		if len(msg.TemplateParams) > 0 {
			params := make([]cloudTemplateParameter, 0, len(msg.TemplateParams))
			for _, p := range msg.TemplateParams {
				params = append(params, cloudTemplateParameter{Type: "text", Text: p})
			}
			req.Template.Components = []cloudTemplateComponent{{Type: "body", Parameters: params}}
		}
	} else {
		req.Type = "text"
		req.Text = &cloudTextBody{Body: msg.Body}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return SendResult{}, err
	}

	url := fmt.Sprintf("%s/%s/messages", t.baseURL, ch.SenderIdentifier)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return SendResult{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+t.accessToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return SendResult{}, fmt.Errorf("%w: %v", relay_errors.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return SendResult{}, fmt.Errorf("%w: %v", relay_errors.ErrTransport, err)
	}

	var parsed cloudSendResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return SendResult{}, fmt.Errorf("%w: malformed provider response", relay_errors.ErrTransport)
	}
	if resp.StatusCode >= 400 {
		if parsed.Error != nil {
			return SendResult{}, fmt.Errorf("%w: %s (code %d)", relay_errors.ErrTransport, parsed.Error.Message, parsed.Error.Code)
		}
		return SendResult{}, fmt.Errorf("%w: provider returned %d", relay_errors.ErrTransport, resp.StatusCode)
	}
	if len(parsed.Messages) == 0 {
		return SendResult{}, fmt.Errorf("%w: provider accepted without message id", relay_errors.ErrTransport)
	}

	return SendResult{ProviderMessageID: parsed.Messages[0].ID}, nil
}
