package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/domain"
)

// MessageRepository persiste los mensajes directos entre dos usuarios.
type MessageRepository interface {
	Create(ctx context.Context, message domain.Message, receiverID string) error
	ListBetween(ctx context.Context, userID, partnerID string) ([]domain.Message, error)
	ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error)
}

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

func (r *PgMessageRepository) Create(ctx context.Context, message domain.Message, receiverID string) error {
	const query = `
		INSERT INTO chat_messages (id, sender_id, receiver_id, body, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		message.ID.String(),
		message.SenderID,
		receiverID,
		message.Body,
		message.Read,
		message.Timestamp,
	)
	return err
}

// ListBetween devuelve el historial de la pareja en orden cronológico.
func (r *PgMessageRepository) ListBetween(ctx context.Context, userID, partnerID string) ([]domain.Message, error) {
	const query = `
		SELECT m.id, m.sender_id, COALESCE(p.name, ''), COALESCE(p.role, ''), m.body, m.created_at, m.read
		FROM chat_messages m
		LEFT JOIN profiles p ON p.id = m.sender_id
		WHERE (m.sender_id = $1 AND m.receiver_id = $2)
		   OR (m.sender_id = $2 AND m.receiver_id = $1)
		ORDER BY m.created_at ASC, m.id ASC
	`

	rows, err := r.pool.Query(ctx, query, userID, partnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]domain.Message, 0)
	for rows.Next() {
		var (
			msg     domain.Message
			id      string
			roleStr string
		)
		err = rows.Scan(
			&id,
			&msg.SenderID,
			&msg.SenderName,
			&roleStr,
			&msg.Body,
			&msg.Timestamp,
			&msg.Read,
		)
		if err != nil {
			return nil, err
		}
		msg.ID = domain.ConfirmedID(id)
		msg.SenderRole = domain.Role(roleStr)
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

// ListConversations agrega el último mensaje por partner, más reciente primero.
func (r *PgMessageRepository) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	const query = `
		SELECT last.partner_id, COALESCE(p.name, ''), COALESCE(p.avatar, ''), last.body, last.created_at
		FROM (
			SELECT DISTINCT ON (partner_id) partner_id, body, created_at
			FROM (
				SELECT CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END AS partner_id,
				       body, created_at
				FROM chat_messages
				WHERE sender_id = $1 OR receiver_id = $1
			) pairs
			ORDER BY partner_id, created_at DESC
		) last
		LEFT JOIN profiles p ON p.id = last.partner_id
		ORDER BY last.created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := make([]domain.Conversation, 0)
	for rows.Next() {
		var conv domain.Conversation
		if err = rows.Scan(
			&conv.PartnerID,
			&conv.PartnerName,
			&conv.PartnerAvatar,
			&conv.LastMessage,
			&conv.LastMessageTimestamp,
		); err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return conversations, nil
}
