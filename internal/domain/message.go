package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// MessageID identifica un mensaje. Puede ser un id local (generado por el cliente
// antes de que el servidor lo confirme) o un id confirmado por el servidor.
type MessageID struct {
	value string
	local bool
}

// LocalID construye un id provisorio generado por el cliente.
func LocalID(clientID string) MessageID {
	return MessageID{value: clientID, local: true}
}

// ConfirmedID construye un id asignado por el servidor.
func ConfirmedID(serverID string) MessageID {
	return MessageID{value: serverID}
}

func (id MessageID) IsLocal() bool     { return id.local }
func (id MessageID) IsConfirmed() bool { return !id.local && id.value != "" }
func (id MessageID) IsZero() bool      { return id.value == "" }
func (id MessageID) String() string    { return id.value }

// MarshalJSON serializa el id como string plano, igual que lo envía el backend.
func (id MessageID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

// UnmarshalJSON acepta ids string o numéricos; todo id que llega por la red es confirmado.
func (id *MessageID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = MessageID{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ConfirmedID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("message id: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("message id: %w", err)
	}
	*id = ConfirmedID(n.String())
	return nil
}

// Message es un mensaje directo entre paciente y enfermero.
type Message struct {
	ID         MessageID `json:"id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	SenderRole Role      `json:"sender_role"`
	Body       string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
	Read       bool      `json:"read"`
}

var ErrInvalidFrame = errors.New("invalid message frame")

// DecodeMessage interpreta un frame entrante del canal en vivo.
func DecodeMessage(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if msg.SenderID == "" {
		return Message{}, fmt.Errorf("%w: missing sender_id", ErrInvalidFrame)
	}
	return msg, nil
}

// OutboundFrame es el payload mínimo que el cliente envía por el canal.
type OutboundFrame struct {
	ReceiverID string `json:"receiver_id"`
	Message    string `json:"message"`
}
