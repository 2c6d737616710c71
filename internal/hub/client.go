package hub

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client is one WebSocket connection bound to one room. The send channel
// is the only way bytes reach the peer; it is buffered so the hub can
// fan out without waiting on slow connections, and it is closed by the
// hub exactly once when the client leaves.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	roomID uint

	// userID is nil for anonymous connections.
	userID *uint

	// name is the display name used in annotated payloads.
	name string

	send chan []byte
}

// NewClient creates a Client for an upgraded connection. userID may be
// nil; name must already be resolved by the caller ("anonymous" when no
// identity was presented).
func NewClient(h *Hub, conn *websocket.Conn, roomID uint, userID *uint, name string) *Client {
	return &Client{
		hub:    h,
		conn:   conn,
		roomID: roomID,
		userID: userID,
		name:   name,
		send:   make(chan []byte, 256),
	}
}

// RoomID returns the id of the room this client is connected to.
func (c *Client) RoomID() uint {
	return c.roomID
}

// UserID returns the authenticated user id, or nil for anonymous.
func (c *Client) UserID() *uint {
	return c.userID
}

// Name returns the client's display name.
func (c *Client) Name() string {
	return c.name
}

// Run starts the client's pumps. The write pump gets its own goroutine;
// the read pump runs on the caller's and returns when the connection
// dies.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// trySend queues payload for delivery without blocking. A full queue
// means the peer is not draining fast enough; the payload is dropped for
// this client and false is returned.
func (c *Client) trySend(payload []byte) bool {
	defer func() {
		// The hub may close the channel between the membership
		// snapshot and this send; a drop is the correct outcome.
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"room_id": c.roomID,
				"name":    c.name,
			}).Debug("Send to a closed client channel dropped")
		}
	}()

	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// CloseConn closes the underlying connection, forcing the read pump to
// return.
func (c *Client) CloseConn() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// readPump reads frames from the peer and pushes each through the hub's
// inbound path. Handling is synchronous on purpose: frames from one
// connection are processed in arrival order.
func (c *Client) readPump() {
	defer func() {
		c.hub.Deregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.WithFields(logrus.Fields{
					"room_id": c.roomID,
					"name":    c.name,
				}).Warnf("Client read error: %v", err)
			}
			return
		}
		if len(payload) == 0 {
			continue
		}
		c.hub.HandleInbound(c, payload)
	}
}

// writePump drains the send channel to the peer and keeps the
// connection alive with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
