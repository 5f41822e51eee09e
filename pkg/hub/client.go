package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// Keepalive controls the ping/pong cycle of every client connection.
type Keepalive struct {
	// WriteWait bounds each write, data or ping.
	WriteWait time.Duration

	// PongWait is how long a client may stay silent before it is dropped.
	PongWait time.Duration

	// PingPeriod must be shorter than PongWait.
	PingPeriod time.Duration
}

// DefaultKeepalive pings every 54s and drops clients silent for a minute.
func DefaultKeepalive() Keepalive {
	return Keepalive{
		WriteWait:  10 * time.Second,
		PongWait:   60 * time.Second,
		PingPeriod: 54 * time.Second,
	}
}

const (
	// Dashboards only send small commands.
	maxMessageSize = 4 * 1024

	// Results queued per client before it counts as too slow.
	sendBuffer = 64
)

// Client is one dashboard connection.
type Client struct {
	id     string
	remote string

	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	keepalive Keepalive

	onMessage func(data []byte)
}

// NewClient registers a dashboard connection with the hub. Text messages
// the dashboard sends are passed to onMessage, which may be nil. NewClient
// returns nil once the hub has stopped.
func NewClient(hub *Hub, conn *websocket.Conn, onMessage func([]byte)) *Client {
	client := &Client{
		id:        uuid.NewString()[:8],
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		keepalive: hub.keepalive,
		onMessage: onMessage,
	}
	if conn != nil {
		client.remote = conn.RemoteAddr().String()
	}

	select {
	case hub.register <- client:
		return client
	case <-hub.done:
		return nil
	}
}

// ID returns a short identifier used in logs.
func (c *Client) ID() string {
	return c.id
}

// Run pumps the connection until it closes or the hub stops.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.keepalive.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.keepalive.PongWait))
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.hub.logger.Debug("client read error", "client", c.id, "error", err)
			}
			return
		}
		if msgType == websocket.TextMessage && c.onMessage != nil {
			c.onMessage(data)
		}
	}
}

// writePump owns all writes to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.keepalive.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.keepalive.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.keepalive.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
