package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	pingPeriod = 30 * time.Second
	pongWait   = 2 * pingPeriod
)

var ErrConnectionClosed = errors.New("connection closed")

// Conn envuelve un websocket del lado servidor y serializa las escrituras por un buffer.
type Conn struct {
	ID     string
	UserID string

	ws    *websocket.Conn
	send  chan []byte
	once  sync.Once
	close chan struct{}
}

func NewConn(userID string, ws *websocket.Conn) *Conn {
	return &Conn{
		ID:     uuid.NewString(),
		UserID: userID,
		ws:     ws,
		send:   make(chan []byte, 64),
		close:  make(chan struct{}),
	}
}

// Send encola el payload. Si el buffer está lleno el cliente es lento y se corta.
func (c *Conn) Send(payload []byte) error {
	select {
	case <-c.close:
		return ErrConnectionClosed
	default:
	}
	select {
	case <-c.close:
		return ErrConnectionClosed
	case c.send <- payload:
		return nil
	default:
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return errors.New("connection buffer exceeded")
	}
}

func (c *Conn) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.close)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		_ = c.ws.Close()
	})
}

// ReadLoop lee frames de texto hasta que el cliente corta o deja de responder pings.
// onPong se invoca con cada pong recibido. Debe correr en una sola goroutine.
func (c *Conn) ReadLoop(onFrame func([]byte), onPong func()) error {
	c.ws.SetReadLimit(maxFrameSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		if onPong != nil {
			onPong()
		}
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			return err
		}
		if kind != websocket.TextMessage {
			continue
		}
		onFrame(data)
	}
}

func (c *Conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.close:
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "write failed")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "ping failed")
				return
			}
		}
	}
}

func (c *Conn) write(kind int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(kind, payload)
}

// Hub mantiene una conexión activa por usuario y entrega mensajes por user id.
type Hub struct {
	mu    sync.RWMutex
	users map[string]*Conn
}

func NewHub() *Hub {
	return &Hub{users: make(map[string]*Conn)}
}

// Attach registra la conexión; si el usuario ya tenía otra, la anterior se cierra.
func (h *Hub) Attach(conn *Conn) {
	h.mu.Lock()
	previous := h.users[conn.UserID]
	h.users[conn.UserID] = conn
	h.mu.Unlock()

	go conn.writeLoop()

	if previous != nil && previous != conn {
		previous.Close(4001, "session replaced")
	}
}

// Detach quita la conexión sólo si sigue siendo la vigente del usuario.
func (h *Hub) Detach(conn *Conn) {
	h.mu.Lock()
	if current, ok := h.users[conn.UserID]; ok && current == conn {
		delete(h.users, conn.UserID)
	}
	h.mu.Unlock()
}

// NotifyUser entrega el payload a la conexión del usuario, si existe.
func (h *Hub) NotifyUser(userID string, payload []byte) bool {
	h.mu.RLock()
	conn := h.users[userID]
	h.mu.RUnlock()
	if conn == nil {
		return false
	}
	return conn.Send(payload) == nil
}

func (h *Hub) Online(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.users[userID]
	return ok
}

// Close corta todas las conexiones registradas.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.users))
	for _, c := range h.users {
		conns = append(conns, c)
	}
	h.users = make(map[string]*Conn)
	h.mu.Unlock()

	for _, c := range conns {
		c.Close(websocket.CloseGoingAway, "server shutdown")
	}
}
