package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/domain"
	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/realtime"
	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/service"
)

// ChatBackend es lo que el handler necesita del servicio de chat.
type ChatBackend interface {
	Register(ctx context.Context, identity domain.Identity) error
	Send(ctx context.Context, sender domain.Identity, frame domain.OutboundFrame) (domain.Message, error)
	Conversations(ctx context.Context, userID string) ([]domain.Conversation, error)
	History(ctx context.Context, userID, partnerID string) ([]domain.Message, error)
	Partner(ctx context.Context, partnerID string, role domain.Role) (domain.ChatPartner, error)
	MarkOnline(ctx context.Context, userID string)
	MarkOffline(ctx context.Context, userID string)
}

// ChatHandler expone el contrato REST del chat y el canal en vivo.
type ChatHandler struct {
	logger   *zap.Logger
	chat     ChatBackend
	hub      *realtime.Hub
	upgrader websocket.Upgrader
}

func NewChatHandler(logger *zap.Logger, chat ChatBackend, hub *realtime.Hub) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{
		logger: logger,
		chat:   chat,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Backend de desarrollo: se acepta cualquier origen.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ListConversations maneja GET /chat/conversations.
func (h *ChatHandler) ListConversations(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	list, err := h.chat.Conversations(c.Request.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("list conversations failed", zap.String("user_id", claims.UserID), zap.Error(err))
		respondError(c, statusFor(err), "could not list conversations")
		return
	}
	respondOK(c, list)
}

// ListMessages maneja GET /chat/messages/:partner_id.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	partnerID := c.Param("partner_id")
	msgs, err := h.chat.History(c.Request.Context(), claims.UserID, partnerID)
	if err != nil {
		h.logger.Error("list messages failed",
			zap.String("user_id", claims.UserID),
			zap.String("partner_id", partnerID),
			zap.Error(err),
		)
		respondError(c, statusFor(err), "could not list messages")
		return
	}
	respondOK(c, msgs)
}

// GetPartner maneja GET /user/nurse/:id y GET /nurse/patient/:id.
func (h *ChatHandler) GetPartner(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		partnerID := c.Param("id")
		partner, err := h.chat.Partner(c.Request.Context(), partnerID, role)
		if err != nil {
			if !errors.Is(err, service.ErrPartnerNotFound) {
				h.logger.Error("get partner failed", zap.String("partner_id", partnerID), zap.Error(err))
			}
			respondError(c, statusFor(err), "could not get profile")
			return
		}
		respondOK(c, partner)
	}
}

// ServeWS maneja GET /ws/chat. Cada frame entrante {receiver_id, message} se
// persiste y se entrega al receptor como Message completo; el emisor no recibe eco.
func (h *ChatHandler) ServeWS(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	identity := claims.Identity()

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	// El contexto del request no sobrevive al hijack de forma confiable.
	ctx := context.Background()
	if err := h.chat.Register(ctx, identity); err != nil {
		h.logger.Warn("register profile failed", zap.String("user_id", identity.ID), zap.Error(err))
	}

	conn := realtime.NewConn(identity.ID, ws)
	h.chat.MarkOnline(ctx, identity.ID)
	h.hub.Attach(conn)
	h.logger.Info("chat connected", zap.String("user_id", identity.ID), zap.String("conn_id", conn.ID))

	defer func() {
		h.hub.Detach(conn)
		conn.Close(websocket.CloseNormalClosure, "bye")
		if !h.hub.Online(identity.ID) {
			h.chat.MarkOffline(ctx, identity.ID)
		}
		h.logger.Info("chat disconnected", zap.String("user_id", identity.ID), zap.String("conn_id", conn.ID))
	}()

	err = conn.ReadLoop(func(data []byte) {
		h.handleFrame(ctx, identity, data)
	}, func() {
		h.chat.MarkOnline(ctx, identity.ID)
	})
	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		h.logger.Debug("chat read ended", zap.String("user_id", identity.ID), zap.Error(err))
	}
}

func (h *ChatHandler) handleFrame(ctx context.Context, sender domain.Identity, data []byte) {
	var frame domain.OutboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		h.logger.Warn("invalid chat frame", zap.String("user_id", sender.ID), zap.Error(err))
		return
	}
	msg, err := h.chat.Send(ctx, sender, frame)
	if err != nil {
		h.logger.Warn("chat send rejected", zap.String("user_id", sender.ID), zap.Error(err))
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal chat message failed", zap.Error(err))
		return
	}
	receiverID := strings.TrimSpace(frame.ReceiverID)
	if !h.hub.NotifyUser(receiverID, payload) {
		h.logger.Debug("receiver offline, message stored only", zap.String("receiver_id", receiverID))
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrMessageInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrPartnerNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
