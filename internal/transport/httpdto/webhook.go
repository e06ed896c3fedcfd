package httpdto

// Meta Cloud API webhook payload, trimmed to the fields the router
// consumes.
type WhatsAppWebhookRequest struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string               `json:"field"`
			Value WhatsAppWebhookValue `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type WhatsAppWebhookValue struct {
	MessagingProduct string `json:"messaging_product"`
	Metadata         struct {
		DisplayPhoneNumber string `json:"display_phone_number"`
		PhoneNumberID      string `json:"phone_number_id"`
	} `json:"metadata"`
	Contacts []struct {
		WaID    string `json:"wa_id"`
		Profile struct {
			Name string `json:"name"`
		} `json:"profile"`
	} `json:"contacts"`
	Messages []WhatsAppWebhookMessage `json:"messages"`
	Statuses []WhatsAppWebhookStatus  `json:"statuses"`
}

type WhatsAppWebhookMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text"`
	Image    *WhatsAppWebhookMedia `json:"image"`
	Video    *WhatsAppWebhookMedia `json:"video"`
	Audio    *WhatsAppWebhookMedia `json:"audio"`
	Document *WhatsAppWebhookMedia `json:"document"`
	Sticker  *WhatsAppWebhookMedia `json:"sticker"`
}

type WhatsAppWebhookMedia struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Caption  string `json:"caption"`
	Filename string `json:"filename"`
	Link     string `json:"link"`
}

type WhatsAppWebhookStatus struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Inbound email webhook, shaped after provider inbound-parse posts.
type EmailWebhookRequest struct {
	ChannelID   string                   `json:"channel_id" binding:"required"`
	ThreadToken string                   `json:"thread_token"`
	MessageID   string                   `json:"message_id"`
	FromName    string                   `json:"from_name"`
	From        string                   `json:"from" binding:"required"`
	To          string                   `json:"to"`
	Subject     string                   `json:"subject"`
	TextBody    string                   `json:"text_body"`
	Attachments []EmailWebhookAttachment `json:"attachments"`
}

type EmailWebhookAttachment struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	Name     string `json:"name"`
}

type EmailDeliveryEventRequest struct {
	MessageID string `json:"message_id" binding:"required"`
	Event     string `json:"event" binding:"required"`
}

type WebhookAckResponse struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}
