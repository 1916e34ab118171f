package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/domain"
)

var (
	ErrUnsuccessful    = errors.New("api responded success=false")
	ErrHTTPStatus      = errors.New("api http error")
	ErrUnsupportedRole = errors.New("unsupported role for partner lookup")
	ErrEmptyPartnerID  = errors.New("partner id is required")
)

// Client habla con el backend REST del marketplace usando un bearer token.
// Implementa el directorio de conversaciones, el historial y el resolver de partners.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

// Option ajusta el cliente en construcción.
type Option func(*Client)

// WithTimeout fija el timeout de cada request. Trabaja sobre una copia del
// http.Client para no alterar uno compartido.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.client
			hc.Timeout = d
			c.client = &hc
		}
	}
}

// NewClient construye un cliente apuntando a baseURL.
func NewClient(baseURL, token string, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListConversations maneja GET /chat/conversations.
func (c *Client) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	var out []domain.Conversation
	if err := c.get(ctx, "/chat/conversations", &out); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	if out == nil {
		out = []domain.Conversation{}
	}
	return out, nil
}

// ListMessages maneja GET /chat/messages/{partner_id}.
func (c *Client) ListMessages(ctx context.Context, partnerID string) ([]domain.Message, error) {
	partnerID = strings.TrimSpace(partnerID)
	if partnerID == "" {
		return nil, ErrEmptyPartnerID
	}
	var out []domain.Message
	if err := c.get(ctx, "/chat/messages/"+url.PathEscape(partnerID), &out); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if out == nil {
		out = []domain.Message{}
	}
	return out, nil
}

// ResolvePartner busca el perfil del otro lado según el rol del usuario actual.
func (c *Client) ResolvePartner(ctx context.Context, partnerID string, role domain.Role) (domain.ChatPartner, error) {
	partnerID = strings.TrimSpace(partnerID)
	if partnerID == "" {
		return domain.ChatPartner{}, ErrEmptyPartnerID
	}
	path, err := PartnerPath(role, partnerID)
	if err != nil {
		return domain.ChatPartner{}, err
	}
	var out domain.ChatPartner
	if err := c.get(ctx, path, &out); err != nil {
		return domain.ChatPartner{}, fmt.Errorf("resolve partner: %w", err)
	}
	if out.ID == "" {
		out.ID = partnerID
	}
	return out, nil
}

// PartnerPath elige el endpoint de perfil según el rol del otro lado:
// un paciente busca enfermeros y viceversa.
func PartnerPath(role domain.Role, partnerID string) (string, error) {
	escaped := url.PathEscape(partnerID)
	switch role.Counterpart() {
	case domain.RoleNurse:
		return "/user/nurse/" + escaped, nil
	case domain.RolePatient:
		return "/nurse/patient/" + escaped, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedRole, role)
}

// AvatarURL arma la URL opaca del avatar; el core nunca la descarga.
func (c *Client) AvatarURL(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	return c.baseURL + "/user/file/" + url.PathEscape(ref)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	// Disponibilidad y presencia cambian rápido: siempre pedimos datos frescos.
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		c.logger.Warn("api error status",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", truncate(body, 512)),
		)
		return fmt.Errorf("%w: status=%d", ErrHTTPStatus, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}
	if !env.Success {
		if env.Message != "" {
			return fmt.Errorf("%w: %s", ErrUnsuccessful, env.Message)
		}
		return ErrUnsuccessful
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
