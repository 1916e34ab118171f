package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/domain"
	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/repository"
)

// ChatService persiste y consulta los mensajes directos del backend de desarrollo.
type ChatService struct {
	messages repository.MessageRepository
	profiles repository.ProfileRepository
	presence PresenceStore
	limiter  SendLimiter
	logger   *zap.Logger
	now      func() time.Time
}

var (
	ErrChatServiceNotConfigured = errors.New("chat service not configured")
	ErrMessageInvalidInput      = errors.New("message invalid input")
	ErrSelfMessage              = errors.New("cannot message yourself")
	ErrRateLimited              = errors.New("send rate limited")
	ErrPartnerNotFound          = errors.New("partner not found")
)

// NewChatService arma el servicio. presence y limiter son opcionales.
func NewChatService(
	messages repository.MessageRepository,
	profiles repository.ProfileRepository,
	presence PresenceStore,
	limiter SendLimiter,
	logger *zap.Logger,
) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		messages: messages,
		profiles: profiles,
		presence: presence,
		limiter:  limiter,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register asegura que el usuario autenticado tenga un perfil visible para su partner.
func (s *ChatService) Register(ctx context.Context, identity domain.Identity) error {
	if s == nil || s.profiles == nil {
		return ErrChatServiceNotConfigured
	}
	if strings.TrimSpace(identity.ID) == "" || !identity.Role.Valid() {
		return ErrMessageInvalidInput
	}
	return s.profiles.Upsert(ctx, repository.Profile{
		ID:   identity.ID,
		Name: identity.Name,
		Role: identity.Role,
	})
}

// Send valida, limita y persiste un mensaje. El mensaje devuelto es el que se
// entrega al receptor, con id de servidor y timestamp asignados acá.
func (s *ChatService) Send(ctx context.Context, sender domain.Identity, frame domain.OutboundFrame) (domain.Message, error) {
	if s == nil || s.messages == nil {
		return domain.Message{}, ErrChatServiceNotConfigured
	}
	receiverID := strings.TrimSpace(frame.ReceiverID)
	body := frame.Message
	if strings.TrimSpace(sender.ID) == "" || receiverID == "" || strings.TrimSpace(body) == "" {
		return domain.Message{}, ErrMessageInvalidInput
	}
	if receiverID == sender.ID {
		return domain.Message{}, ErrSelfMessage
	}
	if s.limiter != nil && !s.limiter.Allow(ctx, sender.ID) {
		return domain.Message{}, ErrRateLimited
	}

	msg := domain.Message{
		ID:         domain.ConfirmedID(uuid.NewString()),
		SenderID:   sender.ID,
		SenderName: sender.Name,
		SenderRole: sender.Role,
		Body:       body,
		Timestamp:  s.now(),
	}
	if err := s.messages.Create(ctx, msg, receiverID); err != nil {
		return domain.Message{}, fmt.Errorf("save message: %w", err)
	}
	return msg, nil
}

func (s *ChatService) Conversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	if s == nil || s.messages == nil {
		return nil, ErrChatServiceNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrMessageInvalidInput
	}
	list, err := s.messages.ListConversations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return list, nil
}

func (s *ChatService) History(ctx context.Context, userID, partnerID string) ([]domain.Message, error) {
	if s == nil || s.messages == nil {
		return nil, ErrChatServiceNotConfigured
	}
	userID = strings.TrimSpace(userID)
	partnerID = strings.TrimSpace(partnerID)
	if userID == "" || partnerID == "" {
		return nil, ErrMessageInvalidInput
	}
	msgs, err := s.messages.ListBetween(ctx, userID, partnerID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// Partner devuelve el perfil con rol role. Available combina el flag guardado
// con la presencia en vivo.
func (s *ChatService) Partner(ctx context.Context, partnerID string, role domain.Role) (domain.ChatPartner, error) {
	if s == nil || s.profiles == nil {
		return domain.ChatPartner{}, ErrChatServiceNotConfigured
	}
	partnerID = strings.TrimSpace(partnerID)
	if partnerID == "" || !role.Valid() {
		return domain.ChatPartner{}, ErrMessageInvalidInput
	}
	profile, err := s.profiles.GetByRole(ctx, partnerID, role)
	if errors.Is(err, repository.ErrProfileNotFound) {
		return domain.ChatPartner{}, ErrPartnerNotFound
	}
	if err != nil {
		return domain.ChatPartner{}, fmt.Errorf("get profile: %w", err)
	}

	partner := domain.ChatPartner{
		ID:             profile.ID,
		Name:           profile.Name,
		Specialization: profile.Specialization,
		Avatar:         profile.Avatar,
		Available:      profile.Available,
	}
	if !partner.Available && s.presence != nil {
		online, err := s.presence.Online(ctx, partnerID)
		if err != nil {
			s.logger.Warn("presence lookup failed", zap.String("partner_id", partnerID), zap.Error(err))
		}
		partner.Available = online
	}
	return partner, nil
}

// MarkOnline y MarkOffline reflejan el ciclo de vida del websocket en la presencia.
func (s *ChatService) MarkOnline(ctx context.Context, userID string) {
	if s == nil || s.presence == nil {
		return
	}
	if err := s.presence.Touch(ctx, userID); err != nil {
		s.logger.Warn("presence touch failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *ChatService) MarkOffline(ctx context.Context, userID string) {
	if s == nil || s.presence == nil {
		return
	}
	if err := s.presence.Clear(ctx, userID); err != nil {
		s.logger.Warn("presence clear failed", zap.String("user_id", userID), zap.Error(err))
	}
}
