package domain

type ChannelType string

const (
	ChannelTypeEmail    ChannelType = "EMAIL"
	ChannelTypeWhatsApp ChannelType = "WHATSAPP"
)

type ChannelVisibility string

const (
	ChannelVisibilityPrivate ChannelVisibility = "PRIVATE"
	ChannelVisibilityTeam    ChannelVisibility = "TEAM"
)

type Direction string

const (
	DirectionInbound  Direction = "INBOUND"
	DirectionOutbound Direction = "OUTBOUND"
)

type MessageType string

const (
	MessageTypeText     MessageType = "TEXT"
	MessageTypeTemplate MessageType = "TEMPLATE"
	MessageTypeImage    MessageType = "IMAGE"
	MessageTypeVideo    MessageType = "VIDEO"
	MessageTypeAudio    MessageType = "AUDIO"
	MessageTypeDocument MessageType = "DOCUMENT"
	MessageTypeSticker  MessageType = "STICKER"
	MessageTypeLocation MessageType = "LOCATION"
	MessageTypeContact  MessageType = "CONTACT"
)

type MessageStatus string

const (
	MessageStatusReceived  MessageStatus = "RECEIVED"
	MessageStatusSent      MessageStatus = "SENT"
	MessageStatusDelivered MessageStatus = "DELIVERED"
	MessageStatusRead      MessageStatus = "READ"
	MessageStatusFailed    MessageStatus = "FAILED"
)

type ActorRole string

const (
	ActorRoleAdmin  ActorRole = "ADMIN"
	ActorRoleMember ActorRole = "MEMBER"
)

// ContactRefType tags the CRM entity kind a thread is linked to.
type ContactRefType string

const (
	ContactRefTypeContact ContactRefType = "CONTACT"
	ContactRefTypeCompany ContactRefType = "COMPANY"
)
