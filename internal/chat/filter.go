package chat

import (
	"strings"

	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/domain"
)

// IngestFilter decide si un frame entrante del canal entra al timeline.
type IngestFilter func(domain.Message) bool

// SelfEchoFilter descarta los frames que el propio usuario originó: el canal
// puede devolver el mensaje recién enviado y ya lo agregamos en forma optimista.
func SelfEchoFilter(selfID string) IngestFilter {
	return func(m domain.Message) bool {
		return m.SenderID != selfID
	}
}

// FilterConversations busca por nombre del partner, sin distinguir mayúsculas.
func FilterConversations(list []domain.Conversation, query string) []domain.Conversation {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.Conversation, 0, len(list))
	for _, c := range list {
		if q == "" || strings.Contains(strings.ToLower(c.PartnerName), q) {
			out = append(out, c)
		}
	}
	return out
}
