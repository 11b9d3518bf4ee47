package ws

import (
	"context"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

const sendBuffer = 16

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one socket of a session.
type Client struct {
	SessionID string
	Conn      Conn
	send      chan []byte
}

// NewClient returns a client for conn attached to sessionID.
func NewClient(sessionID string, conn Conn) *Client {
	return &Client{SessionID: sessionID, Conn: conn, send: make(chan []byte, sendBuffer)}
}

// Message is a payload for the sockets of a session. A non-nil Client
// narrows it to that socket.
type Message struct {
	SessionID string
	Client    *Client
	Payload   []byte
}

// Hub fans session updates out to the sockets of that session.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	Push       chan Message

	logger *zap.Logger
	done   chan struct{}

	mutex    sync.Mutex
	sessions map[string]map[*Client]bool
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Push:       make(chan Message, 64),
		logger:     logger,
		done:       make(chan struct{}),
		sessions:   make(map[string]map[*Client]bool),
	}
}

// Run serves the hub until ctx is done, then closes every socket.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for _, clients := range h.sessions {
				for c := range clients {
					h.drop(c)
				}
			}
			h.sessions = make(map[string]map[*Client]bool)
			h.mutex.Unlock()
			return

		case c := <-h.Register:
			h.mutex.Lock()
			if h.sessions[c.SessionID] == nil {
				h.sessions[c.SessionID] = make(map[*Client]bool)
			}
			h.sessions[c.SessionID][c] = true
			h.mutex.Unlock()
			go h.writePump(c)
			h.logger.Debug("ws client connected", zap.String("session_id", c.SessionID))

		case c := <-h.Unregister:
			h.mutex.Lock()
			if clients, ok := h.sessions[c.SessionID]; ok && clients[c] {
				delete(clients, c)
				if len(clients) == 0 {
					delete(h.sessions, c.SessionID)
				}
				h.drop(c)
			}
			h.mutex.Unlock()

		case msg := <-h.Push:
			h.mutex.Lock()
			for c := range h.sessions[msg.SessionID] {
				if msg.Client != nil && msg.Client != c {
					continue
				}
				select {
				case c.send <- msg.Payload:
				default:
					// Slow reader
					delete(h.sessions[msg.SessionID], c)
					h.drop(c)
					h.logger.Warn("ws client dropped", zap.String("session_id", c.SessionID))
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Attach registers c. It reports false once the hub has stopped.
func (h *Hub) Attach(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Detach unregisters c.
func (h *Hub) Detach(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

// Send queues payload for every socket of sessionID.
func (h *Hub) Send(sessionID string, payload []byte) {
	select {
	case h.Push <- Message{SessionID: sessionID, Payload: payload}:
	case <-h.done:
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }

// SendTo queues payload for c only.
func (h *Hub) SendTo(c *Client, payload []byte) {
	select {
	case h.Push <- Message{SessionID: c.SessionID, Client: c, Payload: payload}:
	case <-h.done:
	}
}

// Clients returns the number of sockets attached to sessionID.
func (h *Hub) Clients(sessionID string) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.sessions[sessionID])
}

// drop closes the send queue; the write pump then closes the socket.
func (h *Hub) drop(c *Client) {
	close(c.send)
}

func (h *Hub) writePump(c *Client) {
	defer c.Conn.Close()
	for payload := range c.send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Debug("ws write failed", zap.String("session_id", c.SessionID), zap.Error(err))
			return
		}
	}
}
