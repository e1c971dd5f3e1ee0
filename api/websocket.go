package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/seenimoa/energybot/internal/chat"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS policy is applied by the router
	},
}

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Upper bound on answering one chat message.
	replyTimeout = 30 * time.Second
)

// WSMessage is a message exchanged over WebSocket connections. Clients send
// {"type":"chat","message":"..."} and receive {"type":"reply","data":{...}}.
type WSMessage struct {
	Type    string      `json:"type"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// WSClient is one WebSocket connection and its chat session.
type WSClient struct {
	conn *websocket.Conn
	send chan WSMessage
	done chan struct{}
	once sync.Once
}

// closeSend stops the write pump after it drains queued messages.
func (c *WSClient) closeSend() {
	c.once.Do(func() { close(c.send) })
}

// WSHub tracks open WebSocket connections.
type WSHub struct {
	mu      sync.RWMutex
	clients map[*WSClient]bool
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub() *WSHub {
	return &WSHub{clients: make(map[*WSClient]bool)}
}

// Register adds a client to the hub.
func (h *WSHub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
}

// Unregister removes a client from the hub.
func (h *WSHub) Unregister(client *WSClient) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
}

// ClientCount returns the number of connected WebSocket clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll ends every open connection with a close frame.
func (h *WSHub) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		client.closeSend()
	}
}

// handleWebSocket upgrades the connection and runs one chat session on it.
// The session ends on an exit word, and the server then closes the socket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := &WSClient{
		conn: conn,
		send: make(chan WSMessage, 16),
		done: make(chan struct{}),
	}
	s.wsHub.Register(client)

	go s.wsWritePump(client)
	go s.wsReadPump(client, s.d.NewSession())
}

// wsReadPump answers chat messages in order until the session ends or the
// peer goes away.
func (s *Server) wsReadPump(client *WSClient, sess *chat.Session) {
	defer func() {
		sess.Close()
		s.wsHub.Unregister(client)
		client.closeSend()
	}()

	conn := client.conn
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug().Err(err).Msg("WebSocket read error")
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			if !client.queue(WSMessage{Type: "error", Message: "invalid message"}) {
				return
			}
			continue
		}

		var out WSMessage
		switch msg.Type {
		case "chat":
			ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
			reply, err := sess.Handle(ctx, msg.Message)
			cancel()
			if err != nil {
				return
			}
			out = WSMessage{Type: "reply", Data: reply}
			if !client.queue(out) || reply.Terminated {
				return
			}
			continue
		case "ping":
			out = WSMessage{Type: "pong"}
		default:
			out = WSMessage{Type: "error", Message: "unknown message type: " + msg.Type}
		}
		if !client.queue(out) {
			return
		}
	}
}

// queue hands msg to the write pump; false once the pump has stopped.
func (c *WSClient) queue(msg WSMessage) bool {
	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	}
}

// wsWritePump writes queued messages and keepalive pings. It owns the
// connection and closes it when the send channel is closed.
func (s *Server) wsWritePump(client *WSClient) {
	ticker := time.NewTicker(pingPeriod)
	conn := client.conn
	defer func() {
		ticker.Stop()
		close(client.done)
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "Goodbye!"))
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				s.log.Warn().Err(err).Msg("WebSocket marshal error")
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
