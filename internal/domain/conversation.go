package domain

import "time"

// Conversation resume el último intercambio con un partner.
type Conversation struct {
	PartnerID            string    `json:"partner_id"`
	PartnerName          string    `json:"partner_name"`
	PartnerAvatar        string    `json:"partner_avatar,omitempty"`
	LastMessage          string    `json:"last_message"`
	LastMessageTimestamp time.Time `json:"last_message_timestamp"`
}

// ChatPartner es el perfil del otro lado, resuelto al abrir la conversación.
type ChatPartner struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization,omitempty"`
	Avatar         string `json:"avatar,omitempty"`
	Available      bool   `json:"available"`
}

// ChannelState es el estado del canal en vivo de la sesión.
type ChannelState int

const (
	ChannelClosed ChannelState = iota
	ChannelConnecting
	ChannelOpen
)

func (s ChannelState) String() string {
	switch s {
	case ChannelConnecting:
		return "CONNECTING"
	case ChannelOpen:
		return "OPEN"
	default:
		return "CLOSED"
	}
}
