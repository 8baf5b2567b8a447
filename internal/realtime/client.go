package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the deadline for a single websocket write.
	writeWait = 10 * time.Second
	// pongWait is how long a connection may stay silent before being
	// considered dead. The client answers our pings with pongs, so a healthy
	// connection is never silent that long.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait so the ping goes out before
	// the read deadline expires.
	pingPeriod = (pongWait * 9) / 10
	// maxMessageSize bounds inbound frames. Clients have nothing to say
	// beyond control traffic, so this is tight.
	maxMessageSize = 4096

	// sendBufferSize is the per-session outbound queue. If a client falls
	// this far behind, further pushes to it are dropped (see Hub.Push).
	sendBufferSize = 64
)

// Client is the middleman between one websocket connection and the hub:
// a buffered send channel plus the two pump goroutines that move messages
// between the channel and the wire.
type Client struct {
	userID string
	hub    *Hub
	conn   *websocket.Conn
	send   chan Message
	logger *slog.Logger

	closeOnce sync.Once
}

// NewClient wraps an upgraded websocket connection for the given user.
// The caller registers it with the hub and then calls Start.
func NewClient(hub *Hub, conn *websocket.Conn, userID string, logger *slog.Logger) *Client {
	return &Client{
		userID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan Message, sendBufferSize),
		logger: logger,
	}
}

// Start launches the read and write pumps. It returns immediately; the
// pumps own the connection from here on and tear everything down when the
// peer disconnects.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// close closes the send channel exactly once. Called via Hub.Unregister or
// Hub.Shutdown, never directly.
func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// readPump drains inbound frames until the connection dies, then removes
// the session from the hub. We never act on inbound data — the protocol is
// push-only — but reading is still required to process pong control frames
// and to notice the peer going away.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c.userID, c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", slog.String("error", err.Error()))
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("unexpected websocket close",
					slog.String("userID", c.userID),
					slog.String("error", err.Error()),
				)
			}
			return
		}
	}
}

// writePump moves messages from the send channel to the wire and keeps the
// connection alive with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}

			if !ok {
				// The hub closed the channel — say goodbye properly.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Warn("websocket write failed",
					slog.String("userID", c.userID),
					slog.String("error", err.Error()),
				)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
