package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/domain"
)

const (
	writeWait    = 10 * time.Second
	maxFrameSize = 1 << 20
)

var (
	ErrChannelUsed   = errors.New("channel already opened once")
	ErrChannelClosed = errors.New("channel closed")
)

// FrameHandler recibe los frames entrantes y los cambios de estado del canal.
type FrameHandler interface {
	OnChannelMessage(raw []byte)
	OnChannelState(state domain.ChannelState)
}

// Channel es la única conexión en vivo de una sesión de chat.
// Estados: CLOSED -> CONNECTING -> OPEN -> CLOSED. No se reconecta: una vez
// cerrado queda cerrado y la vista debe crear un canal nuevo.
type Channel struct {
	url    string
	dialer *websocket.Dialer
	logger *zap.Logger

	mu      sync.Mutex
	state   domain.ChannelState
	conn    *websocket.Conn
	used    bool
	closed  bool
	handler FrameHandler
	done    chan struct{}

	writeMu sync.Mutex
}

// NewChannel prepara un canal hacia chatURL (ver ChatURL). No conecta hasta Open.
func NewChannel(chatURL string, logger *zap.Logger) *Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{
		url: chatURL,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		logger: logger,
		done:   make(chan struct{}),
	}
}

// ChatURL arma wss://host/ws/chat?token=... a partir de una URL base http(s) o ws(s).
func ChatURL(base, token string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("parse ws base: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported ws scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/chat"
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Channel) State() domain.ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done se cierra cuando el canal queda definitivamente cerrado.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Open conecta el socket y empieza a reenviar frames al handler.
func (c *Channel) Open(ctx context.Context, handler FrameHandler) error {
	c.mu.Lock()
	if c.used {
		c.mu.Unlock()
		return ErrChannelUsed
	}
	c.used = true
	c.handler = handler
	c.mu.Unlock()

	c.setState(domain.ChannelConnecting)

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.logger.Warn("channel dial failed", zap.Error(err))
		c.finish(nil)
		return fmt.Errorf("dial channel: %w", err)
	}
	conn.SetReadLimit(maxFrameSize)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrChannelClosed
	}
	c.conn = conn
	c.mu.Unlock()

	c.setState(domain.ChannelOpen)
	c.logger.Info("channel open")

	go c.readLoop(conn)
	return nil
}

// Send escribe un frame saliente. Si el canal no está OPEN es un no-op silencioso.
func (c *Channel) Send(ctx context.Context, frame domain.OutboundFrame) error {
	c.mu.Lock()
	conn := c.conn
	open := c.state == domain.ChannelOpen
	c.mu.Unlock()
	if !open || conn == nil {
		return nil
	}

	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	err = conn.SetWriteDeadline(deadline)
	if err == nil {
		err = conn.WriteMessage(websocket.TextMessage, payload)
	}
	c.writeMu.Unlock()

	if err != nil {
		c.logger.Warn("channel write failed", zap.Error(err))
		c.finish(conn)
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Close libera el socket. Es idempotente y seguro en cualquier estado.
func (c *Channel) Close() error {
	c.mu.Lock()
	c.used = true
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		c.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()
	}
	c.finish(conn)
	return nil
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	defer c.finish(conn)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				errors.Is(err, websocket.ErrCloseSent) {
				c.logger.Info("channel closed by peer")
			} else if !c.isClosed() {
				c.logger.Warn("channel read failed", zap.Error(err))
			}
			return
		}
		c.mu.Lock()
		h := c.handler
		c.mu.Unlock()
		if h != nil {
			h.OnChannelMessage(data)
		}
	}
}

// finish deja el canal en CLOSED y libera el socket una sola vez.
func (c *Channel) finish(conn *websocket.Conn) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	c.setState(domain.ChannelClosed)
	close(c.done)
}

func (c *Channel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Channel) setState(state domain.ChannelState) {
	c.mu.Lock()
	if c.state == state || (c.closed && state != domain.ChannelClosed) {
		c.mu.Unlock()
		return
	}
	c.state = state
	h := c.handler
	c.mu.Unlock()
	if h != nil {
		h.OnChannelState(state)
	}
}
